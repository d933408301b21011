package hotel

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-inventory/internal/common/handler"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
	hotelService "github.com/dumeirei/hotel-inventory/internal/service/hotel"
)

// HousekeepingHandler 清洁任务处理器
type HousekeepingHandler struct {
	housekeepingService *hotelService.HousekeepingService
}

// NewHousekeepingHandler 创建清洁任务处理器
func NewHousekeepingHandler(svc *hotelService.HousekeepingService) *HousekeepingHandler {
	return &HousekeepingHandler{housekeepingService: svc}
}

// StartTaskRequest 开始任务请求
type StartTaskRequest struct {
	StaffID int64 `json:"staff_id"`
}

// CompleteTaskRequest 完成任务请求
type CompleteTaskRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// ListPendingTasks 获取门店未完成的清洁任务
// @Summary 获取未完成的清洁任务
// @Tags 客房清洁
// @Produce json
// @Security Bearer
// @Param id path int true "门店ID"
// @Success 200 {object} response.Response{data=[]hotelService.TaskInfo}
// @Router /api/v1/properties/{id}/housekeeping/tasks [get]
func (h *HousekeepingHandler) ListPendingTasks(c *gin.Context) {
	_, propertyID, ok := handler.RequireActorAndParseID(c, "门店")
	if !ok {
		return
	}

	tasks, err := h.housekeepingService.ListPending(c.Request.Context(), propertyID)
	handler.MustSucceed(c, err, tasks)
}

// StartTask 开始清洁任务
// @Summary 开始清洁任务
// @Tags 客房清洁
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "任务ID"
// @Param request body StartTaskRequest false "请求参数"
// @Success 200 {object} response.Response{data=hotelService.TaskInfo}
// @Router /api/v1/housekeeping/tasks/{id}/start [post]
func (h *HousekeepingHandler) StartTask(c *gin.Context) {
	actorID, taskID, ok := handler.RequireActorAndParseID(c, "任务")
	if !ok {
		return
	}

	var req StartTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	task, err := h.housekeepingService.StartTask(c.Request.Context(), actorID, taskID, req.StaffID)
	handler.MustSucceed(c, err, task)
}

// CompleteTask 完成清洁任务
// @Summary 完成清洁任务
// @Tags 客房清洁
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "任务ID"
// @Param request body CompleteTaskRequest false "请求参数"
// @Success 200 {object} response.Response{data=hotelService.TaskInfo}
// @Router /api/v1/housekeeping/tasks/{id}/complete [post]
func (h *HousekeepingHandler) CompleteTask(c *gin.Context) {
	actorID, taskID, ok := handler.RequireActorAndParseID(c, "任务")
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	task, err := h.housekeepingService.CompleteTask(c.Request.Context(), actorID, taskID, req.Notes)
	handler.MustSucceed(c, err, task)
}
