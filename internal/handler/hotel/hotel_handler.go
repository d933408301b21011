// Package hotel 提供客房库存与预订相关的 HTTP Handler
package hotel

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-inventory/internal/common/handler"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
	hotelService "github.com/dumeirei/hotel-inventory/internal/service/hotel"
)

// Handler 门店与可用性查询处理器
type Handler struct {
	propertyService     *hotelService.PropertyService
	availabilityService *hotelService.AvailabilityService
}

// NewHandler 创建门店处理器
func NewHandler(propertySvc *hotelService.PropertyService, availabilitySvc *hotelService.AvailabilityService) *Handler {
	return &Handler{
		propertyService:     propertySvc,
		availabilityService: availabilitySvc,
	}
}

// ListProperties 获取门店列表
// @Summary 获取门店列表
// @Tags 门店
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param city query string false "城市"
// @Success 200 {object} response.Response{data=response.ListData{list=[]hotelService.PropertyInfo}}
// @Router /api/v1/properties [get]
func (h *Handler) ListProperties(c *gin.Context) {
	var req hotelService.PropertyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	p := handler.BindPagination(c)
	req.Page, req.PageSize = p.Page, p.PageSize

	properties, total, err := h.propertyService.ListProperties(c.Request.Context(), &req)
	handler.MustSucceedPage(c, err, properties, total, p.Page, p.PageSize)
}

// GetProperty 获取门店详情
// @Summary 获取门店详情
// @Tags 门店
// @Produce json
// @Param id path int true "门店ID"
// @Success 200 {object} response.Response{data=hotelService.PropertyInfo}
// @Router /api/v1/properties/{id} [get]
func (h *Handler) GetProperty(c *gin.Context) {
	propertyID, ok := handler.ParseID(c, "门店")
	if !ok {
		return
	}

	property, err := h.propertyService.GetProperty(c.Request.Context(), propertyID)
	handler.MustSucceed(c, err, property)
}

// ListRooms 获取门店房间状态
// @Summary 获取门店房间状态
// @Tags 门店
// @Produce json
// @Security Bearer
// @Param id path int true "门店ID"
// @Param status query string false "房间状态" Enums(OCCUPIED, VACANT_DIRTY, CLEAN_READY, OUT_OF_ORDER, INSPECTED)
// @Success 200 {object} response.Response{data=[]hotelService.RoomInfo}
// @Router /api/v1/properties/{id}/rooms [get]
func (h *Handler) ListRooms(c *gin.Context) {
	propertyID, ok := handler.ParseID(c, "门店")
	if !ok {
		return
	}

	rooms, err := h.propertyService.ListRooms(c.Request.Context(), propertyID, c.Query("status"))
	handler.MustSucceed(c, err, rooms)
}

// SearchAvailability 查询可用房型
// @Summary 查询可用房型
// @Description 返回在 [check_in, check_out) 内至少有一间可售房且能容纳 guests 人的房型
// @Tags 门店
// @Produce json
// @Param id path int true "门店ID"
// @Param check_in query string true "入住日期 YYYY-MM-DD"
// @Param check_out query string true "离店日期 YYYY-MM-DD"
// @Param guests query int false "入住人数，默认 1"
// @Success 200 {object} response.Response{data=hotelService.SearchAvailabilityResponse}
// @Router /api/v1/properties/{id}/availability [get]
func (h *Handler) SearchAvailability(c *gin.Context) {
	propertyID, ok := handler.ParseID(c, "门店")
	if !ok {
		return
	}
	checkIn, ok := handler.ParseRequiredQueryDate(c, "check_in", "入住日期")
	if !ok {
		return
	}
	checkOut, ok := handler.ParseRequiredQueryDate(c, "check_out", "离店日期")
	if !ok {
		return
	}
	guests, err := strconv.Atoi(c.DefaultQuery("guests", "1"))
	if err != nil {
		response.BadRequest(c, "无效的入住人数")
		return
	}

	result, err := h.availabilityService.SearchAvailability(c.Request.Context(), &hotelService.SearchAvailabilityRequest{
		PropertyID: propertyID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     guests,
	})
	handler.MustSucceed(c, err, result)
}
