package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
)

// 上下文键
const (
	ContextKeyRequestID     = "request_id"
	ContextKeyRequestLogger = "request_logger"
)

const (
	headerRequestID    = "X-Request-ID"
	maxRequestIDLength = 64
)

// RequestContext 为每个请求分配请求 ID，并在上下文中挂载带请求 ID 的日志器
// 上游传入的 X-Request-ID 只接受字母、数字、- 和 _，其余情况重新生成
func RequestContext(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		// 设置到上下文和响应头
		c.Set(ContextKeyRequestID, requestID)
		c.Set(ContextKeyRequestLogger, log.With(logger.RequestID(requestID)))
		c.Header(headerRequestID, requestID)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
		default:
			return false
		}
	}
	return true
}

// GetRequestID 获取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// RequestLogger 返回当前请求的日志器，未经过 RequestContext 时退回 fallback
func RequestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(ContextKeyRequestLogger); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return fallback
}

// Recovery 恢复中间件
func Recovery(fallback *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				// 获取堆栈信息
				stack := string(debug.Stack())

				fields := []zap.Field{
					logger.Method(c.Request.Method),
					logger.Path(c.Request.URL.Path),
					logger.IP(c.ClientIP()),
					zap.Any("panic", rec),
					zap.String("stack", stack),
				}
				if actorID := GetActorID(c); actorID > 0 {
					fields = append(fields, logger.ActorID(actorID))
				}
				RequestLogger(c, fallback).Error("Panic recovered", fields...)

				// 返回统一的内部错误
				_ = c.Error(errors.ErrInternalError.WithMessage("panic recovered"))
				response.AppError(c, errors.ErrInternalError)
				c.Abort()
			}
		}()

		c.Next()
	}
}

// SecureHeaders 安全头中间件，携带凭证的请求额外禁止缓存
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止点击劫持
		c.Header("X-Frame-Options", "DENY")
		// 防止 MIME 类型嗅探
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if c.GetHeader("Authorization") != "" {
			c.Header("Cache-Control", "no-store")
			c.Header("Pragma", "no-cache")
		}

		c.Next()
	}
}
