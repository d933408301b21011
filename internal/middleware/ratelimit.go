package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/hotel-inventory/internal/common/cache"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Client  redis.UniversalClient
	Limit   int
	Window  time.Duration
	KeyFunc func(*gin.Context) string
}

// RateLimit 固定窗口限流中间件，Redis 不可用时放行
func RateLimit(cfg *RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ActorKey
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := cache.BuildKey(cache.KeyPrefixRateLimit+keyFunc(c), c.FullPath())

		count, err := cfg.Client.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			cfg.Client.Expire(ctx, key, cfg.Window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		if int(count) > cfg.Limit {
			ttl, _ := cfg.Client.TTL(ctx, key).Result()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Limit-int(count)))

		c.Next()
	}
}

// ActorKey 已登录按操作员限流，否则按 IP
func ActorKey(c *gin.Context) string {
	if actorID := GetActorID(c); actorID > 0 {
		return fmt.Sprintf("actor:%d", actorID)
	}
	return "ip:" + c.ClientIP()
}
