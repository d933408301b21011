package main

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/dumeirei/hotel-inventory/internal/common/jwt"
	commonMiddleware "github.com/dumeirei/hotel-inventory/internal/common/middleware"
	"github.com/dumeirei/hotel-inventory/internal/common/metrics"
	hotelHandler "github.com/dumeirei/hotel-inventory/internal/handler/hotel"
	"github.com/dumeirei/hotel-inventory/internal/middleware"
)

// setupRouter 设置路由
func setupRouter(r *gin.Engine, a *app) {
	cfg := a.cfg

	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:     cfg.JWT.Secret,
		ExpireTime: cfg.JWT.AccessTokenDuration(),
		Issuer:     cfg.JWT.Issuer,
	})

	propertyH := hotelHandler.NewHandler(a.propertyService, a.availabilityService)
	bookingH := hotelHandler.NewBookingHandler(a.bookingService)
	housekeepingH := hotelHandler.NewHousekeepingHandler(a.housekeepingService)

	// 全局中间件
	r.Use(middleware.RequestContext(a.log))
	r.Use(middleware.Recovery(a.log))
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.Logging(&middleware.LoggingConfig{Logger: a.log}))
	r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		SkipPaths:   []string{"/health", "/ready", cfg.Metrics.Path},
	}))
	r.Use(commonMiddleware.AuditContext())
	if a.metrics != nil {
		r.Use(a.metrics.Middleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	r.GET("/health", healthHandler)
	r.GET("/ready", readyHandler(a.db, a.redis))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// 公开查询
	public := v1.Group("")
	{
		public.GET("/properties", propertyH.ListProperties)
		public.GET("/properties/:id", propertyH.GetProperty)
		public.GET("/properties/:id/availability", propertyH.SearchAvailability)
	}

	// 操作员接口
	staff := v1.Group("")
	staff.Use(middleware.Auth(jwtManager))
	if cfg.RateLimit.Enabled && a.redis != nil {
		staff.Use(middleware.RateLimit(&middleware.RateLimitConfig{
			Client: a.redis,
			Limit:  cfg.RateLimit.Limit,
			Window: time.Duration(cfg.RateLimit.Window) * time.Second,
		}))
	}
	{
		staff.GET("/properties/:id/rooms", propertyH.ListRooms)

		bookings := staff.Group("/bookings", middleware.RequireRole(jwt.RoleFrontDesk))
		{
			bookings.POST("", bookingH.CreateBooking)
			bookings.GET("", bookingH.ListBookings)
			bookings.GET("/by-number/:number", bookingH.GetBookingByNo)
			bookings.GET("/:id", bookingH.GetBooking)
			bookings.POST("/:id/confirm", bookingH.ConfirmBooking)
			bookings.POST("/:id/check-in", bookingH.CheckIn)
			bookings.POST("/:id/check-out", bookingH.CheckOut)
			bookings.POST("/:id/cancel", bookingH.CancelBooking)
			bookings.POST("/:id/refund", bookingH.SettleRefund)
			bookings.GET("/:id/audit-logs", middleware.RequireRole(jwt.RoleManager), bookingH.ListBookingAudit)
		}

		housekeeping := staff.Group("", middleware.RequireRole(jwt.RoleHousekeeping))
		{
			housekeeping.GET("/properties/:id/housekeeping/tasks", housekeepingH.ListPendingTasks)
			housekeeping.POST("/housekeeping/tasks/:id/start", housekeepingH.StartTask)
			housekeeping.POST("/housekeeping/tasks/:id/complete", housekeepingH.CompleteTask)
		}
	}
}
