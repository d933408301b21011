// Package main 是应用程序入口
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/cache"
	"github.com/dumeirei/hotel-inventory/internal/common/config"
	"github.com/dumeirei/hotel-inventory/internal/common/database"
	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/metrics"
	"github.com/dumeirei/hotel-inventory/internal/common/tracing"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
	"github.com/dumeirei/hotel-inventory/internal/scheduler"
	hotelService "github.com/dumeirei/hotel-inventory/internal/service/hotel"
	"github.com/dumeirei/hotel-inventory/internal/service/notify"
	"github.com/dumeirei/hotel-inventory/pkg/amqp"
	"github.com/dumeirei/hotel-inventory/pkg/mqtt"
	"github.com/dumeirei/hotel-inventory/pkg/payment"
)

const version = "1.0.0"

// app 运行期依赖
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	redis      *redis.Client
	metrics    *metrics.Metrics
	dispatcher *notify.Dispatcher
	closers    []func()

	bookingService      *hotelService.BookingService
	availabilityService *hotelService.AvailabilityService
	propertyService     *hotelService.PropertyService
	housekeepingService *hotelService.HousekeepingService
	scheduler           *scheduler.Scheduler
}

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.GetLogger()
	log.Info("Starting Hotel Inventory Service",
		zap.String("version", version),
		zap.String("env", cfg.Server.Mode),
	)

	tracer, err := tracing.Init(&tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Mode,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	a, err := newApp(cfg, log)
	if err != nil {
		log.Fatal("Failed to init application", zap.Error(err))
	}

	switch {
	case cfg.IsRelease():
		gin.SetMode(gin.ReleaseMode)
	case cfg.IsDebug():
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.TestMode)
	}

	engine := gin.New()
	setupRouter(engine, a)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	a.scheduler.Start()

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.scheduler.Stop()
	if err := a.dispatcher.Close(ctx); err != nil {
		log.Warn("Notification queue not drained", zap.Error(err))
	}
	if err := tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	a.close()

	log.Info("Server exited")
}

// newApp 按配置装配存储、缓存、通知和业务服务
func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	db, err := database.Init(&cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { _ = database.Close() })
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver), zap.String("isolation", cfg.Database.Isolation))

	if cfg.Database.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	if cfg.Redis.Enabled {
		client, err := cache.Init(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.closers = append(a.closers, func() { _ = cache.Close() })
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.Init(cfg.Metrics.Namespace)
	}

	publisher, err := a.newPublisher()
	if err != nil {
		return nil, err
	}
	a.dispatcher = notify.NewDispatcher(publisher, notify.DispatcherConfig{
		QueueSize: cfg.Notify.QueueSize,
		Workers:   cfg.Notify.Workers,
	}, log, a.metrics)

	gateway, err := payment.New(&payment.Config{
		Provider: cfg.Payment.Provider,
		MchID:    cfg.Payment.MchID,
		APIKey:   cfg.Payment.APIKey,
		Timeout:  time.Duration(cfg.Payment.Timeout) * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}

	store := repository.NewStore(db, database.TxOptions(&cfg.Database))
	bookingCfg := &cfg.Business.Booking

	a.bookingService = hotelService.NewBookingService(store, a.dispatcher, gateway, a.metrics, bookingCfg)
	if bookingCfg.DistributedLock {
		if a.redis == nil {
			return nil, fmt.Errorf("distributed lock requires redis")
		}
		a.bookingService.SetLocker(cache.NewLocker(a.redis))
	}

	catalogTTL := time.Duration(bookingCfg.CatalogCacheTTL) * time.Second
	var catalog *cache.Local[[]*models.RoomType]
	if catalogTTL > 0 {
		catalog = cache.NewLocal[[]*models.RoomType](1000, catalogTTL)
		a.closers = append(a.closers, catalog.Stop)
	}
	a.availabilityService = hotelService.NewAvailabilityService(store, catalog, a.metrics)
	a.propertyService = hotelService.NewPropertyService(store)
	a.housekeepingService = hotelService.NewHousekeepingService(store, a.metrics)

	a.scheduler = scheduler.NewScheduler(log)
	scheduler.SetupTasks(a.scheduler, scheduler.NewTaskHandler(store, a.bookingService, bookingCfg), bookingCfg)

	return a, nil
}

// newPublisher 按 notify.transport 选择事件通道
func (a *app) newPublisher() (notify.Publisher, error) {
	switch a.cfg.Notify.Transport {
	case "mqtt":
		mc := a.cfg.MQTT
		client := mqtt.NewClient(&mqtt.Config{
			Broker:         mc.Broker,
			ClientID:       fmt.Sprintf("%s%d", mc.ClientIDPrefix, os.Getpid()),
			Username:       mc.Username,
			Password:       mc.Password,
			QoS:            mc.QoS,
			Retained:       mc.Retained,
			KeepAlive:      time.Duration(mc.KeepAlive) * time.Second,
			ConnectTimeout: time.Duration(mc.ConnectTimeout) * time.Second,
			AutoReconnect:  mc.AutoReconnect,
		}, a.log)
		if err := client.Connect(); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		return notify.NewMQTTPublisher(client, mc.TopicPrefix), nil
	case "amqp":
		client, err := amqp.Dial(&amqp.Config{
			URL:        a.cfg.AMQP.URL,
			Exchange:   a.cfg.AMQP.Exchange,
			RoutingKey: a.cfg.AMQP.RoutingKey,
		}, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return notify.NewAMQPPublisher(client), nil
	case "log", "":
		return notify.NewLogPublisher(a.log), nil
	default:
		return nil, fmt.Errorf("unsupported notify transport: %s", a.cfg.Notify.Transport)
	}
}

// close 逆序释放资源
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
