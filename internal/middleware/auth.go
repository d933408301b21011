// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-inventory/internal/common/jwt"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
)

// 上下文键
const (
	ContextKeyActorID    = "actor_id"
	ContextKeyRole       = "role"
	ContextKeyPropertyID = "actor_property_id"
	ContextKeyClaims     = "claims"
)

// Auth 认证中间件，解析操作员令牌并写入上下文
func Auth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := manager.ParseToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, "登录已过期，请重新登录")
			} else {
				response.Unauthorized(c, "无效的令牌")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyActorID, claims.ActorID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyPropertyID, claims.PropertyID)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// RequireRole 要求操作员具备任一角色，经理角色始终放行
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok && role != jwt.RoleManager {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken 从请求中提取令牌
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

// GetActorID 从上下文获取操作员 ID
func GetActorID(c *gin.Context) int64 {
	if v, ok := c.Get(ContextKeyActorID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

// GetClaims 从上下文获取完整的 Claims
func GetClaims(c *gin.Context) *jwt.Claims {
	if v, ok := c.Get(ContextKeyClaims); ok {
		if claims, ok := v.(*jwt.Claims); ok {
			return claims
		}
	}
	return nil
}
