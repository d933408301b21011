package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-inventory/internal/common/auditctx"
)

// AuditContext 把客户端 IP、UA 和请求 ID 放入请求上下文，供服务层写审计日志
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := auditctx.Client{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: c.GetString("request_id"),
		}
		if len(client.UserAgent) > 255 {
			client.UserAgent = client.UserAgent[:255]
		}
		c.Request = c.Request.WithContext(auditctx.WithClient(c.Request.Context(), client))
		c.Next()
	}
}
