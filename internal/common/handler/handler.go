// Package handler 提供 API Handler 的通用辅助函数
// 统一错误处理、操作员身份检查、参数解析等操作
package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
	"github.com/dumeirei/hotel-inventory/internal/common/utils"
	"github.com/dumeirei/hotel-inventory/internal/middleware"
)

// DateFormat 日期参数格式
const DateFormat = utils.DateLayout

// HandleError 处理错误并发送适当的响应
// err 为 nil 返回 false；否则发送错误响应并返回 true，调用方应该 return
//
// 使用示例:
//
//	info, err := svc.ConfirmBooking(ctx, actorID, id)
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	appErr := errors.GetAppError(err)
	if appErr == nil {
		appErr = errors.ErrInternalError.WithError(err)
	}
	if appErr.Kind == errors.KindInternal {
		middleware.RequestLogger(c, logger.GetLogger()).Error("请求处理失败",
			logger.Method(c.Request.Method),
			logger.Path(c.FullPath()),
			logger.Int("code", appErr.Code),
			logger.Err(err),
		)
	}
	response.AppError(c, appErr)
	return true
}

// MustSucceed 有错误则返回错误响应，否则返回成功响应
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedPage 分页响应版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessList(c, list, total, page, pageSize)
}

// RequireActorID 获取当前操作员 ID，未登录时发送 401 响应
//
//	actorID, ok := handler.RequireActorID(c)
//	if !ok {
//	    return
//	}
func RequireActorID(c *gin.Context) (int64, bool) {
	actorID := middleware.GetActorID(c)
	if actorID == 0 {
		response.Unauthorized(c, "请先登录")
		return 0, false
	}
	return actorID, true
}

// ParseID 解析路径参数 "id" 为 int64
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为正整数 ID，失败时发送 400 响应
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析查询参数中的可选 ID
// 参数为空返回 (nil, true)；解析失败返回 (nil, false)，已发送 400 响应
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// ParseRequiredQueryID 解析查询参数中的必填 ID
func ParseRequiredQueryID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	if c.Query(paramName) == "" {
		response.BadRequest(c, "请提供"+resourceName+"ID")
		return 0, false
	}
	id, ok := ParseQueryID(c, paramName, resourceName)
	if !ok {
		return 0, false
	}
	return *id, true
}

// ParseDate 解析 YYYY-MM-DD 日期为 UTC 零点
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}

// ParseRequiredQueryDate 从查询参数解析必填日期，失败时发送 400 响应
func ParseRequiredQueryDate(c *gin.Context, paramName, label string) (time.Time, bool) {
	s := c.Query(paramName)
	if s == "" {
		response.BadRequest(c, "请指定"+label)
		return time.Time{}, false
	}
	t, err := ParseDate(s)
	if err != nil {
		response.BadRequest(c, "无效的"+label+"格式")
		return time.Time{}, false
	}
	return t, true
}

// BindPagination 从查询参数绑定并规范化分页参数
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p.Normalize()
	return p
}

// RequireActorAndParseID 组合：检查登录 + 解析 ID 参数
func RequireActorAndParseID(c *gin.Context, resourceName string) (actorID, resourceID int64, ok bool) {
	actorID, ok = RequireActorID(c)
	if !ok {
		return 0, 0, false
	}
	resourceID, ok = ParseID(c, resourceName)
	if !ok {
		return 0, 0, false
	}
	return actorID, resourceID, true
}
