package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/database"
)

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// healthHandler 存活检查
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
	})
}

// readyHandler 就绪检查，数据库和已启用的 Redis 均可达时返回 200
func readyHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, 2)
		healthy := true

		checks["database"] = "ok"
		if err := database.Ping(ctx, db); err != nil {
			checks["database"] = "error: " + err.Error()
			healthy = false
		}

		if redisClient != nil {
			checks["redis"] = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				checks["redis"] = "error: " + err.Error()
				healthy = false
			}
		}

		resp := HealthResponse{Status: "ready", Timestamp: time.Now().Unix(), Checks: checks}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
			resp.Status = "not ready"
		}
		c.JSON(status, resp)
	}
}
