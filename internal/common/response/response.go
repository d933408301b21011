// Package response 提供统一的 API 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
)

// Response API 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListData 列表数据结构
type ListData struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 资源创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// SuccessList 列表成功响应
func SuccessList(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: ListData{
			List:     list,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		},
	})
}

// StatusForKind 错误类别对应的 HTTP 状态码
func StatusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindIllegalTransition, errors.KindNoRoomAvailable, errors.KindConflict:
		return http.StatusConflict
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// AppError 按错误类别输出响应；internal 类别只返回错误码和通用消息
func AppError(c *gin.Context, err *errors.AppError) {
	status := StatusForKind(err.Kind)
	if status == http.StatusInternalServerError {
		c.JSON(status, Response{
			Code:    err.Code,
			Message: errors.ErrInternalError.Message,
		})
		return
	}

	var data interface{}
	if len(err.Details) > 0 {
		data = err.Details
	}
	c.JSON(status, Response{
		Code:    err.Code,
		Message: err.Message,
		Data:    data,
	})
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    errors.ErrInvalidParams.Code,
		Message: message,
	})
}

// Unauthorized 未授权
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = errors.ErrUnauthorized.Message
	}
	c.JSON(http.StatusUnauthorized, Response{
		Code:    errors.ErrUnauthorized.Code,
		Message: message,
	})
}

// Forbidden 禁止访问
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = errors.ErrPermissionDenied.Message
	}
	c.JSON(http.StatusForbidden, Response{
		Code:    errors.ErrPermissionDenied.Code,
		Message: message,
	})
}

// NotFound 资源不存在
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = errors.ErrNotFound.Message
	}
	c.JSON(http.StatusNotFound, Response{
		Code:    errors.ErrNotFound.Code,
		Message: message,
	})
}

// InternalError 服务器内部错误
func InternalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, Response{
		Code:    errors.ErrInternalError.Code,
		Message: errors.ErrInternalError.Message,
	})
}

// TooManyRequests 请求过于频繁
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "too many requests"
	}
	c.JSON(http.StatusTooManyRequests, Response{
		Code:    429,
		Message: message,
	})
}
