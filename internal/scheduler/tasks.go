package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/hotel-inventory/internal/common/config"
	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/utils"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
	"github.com/dumeirei/hotel-inventory/internal/service/hotel"
)

// 取消原因
const (
	ReasonExpired = "expired"
	ReasonNoShow  = "no_show"
)

// 单次扫描上限
const scanBatchSize = 100

// 刚取消的预订由取消请求自己发起退款，重试任务跳过
const refundGracePeriod = time.Minute

// BookingCanceller 取消预订并补发退款，由预订服务实现
type BookingCanceller interface {
	CancelBooking(ctx context.Context, actorID, bookingID int64, reason string) (*hotel.CancelResult, error)
	SettleRefund(ctx context.Context, actorID, bookingID int64) (*hotel.BookingInfo, error)
}

// TaskHandler 任务处理器
type TaskHandler struct {
	store         *repository.Store
	bookings      BookingCanceller
	pendingExpiry time.Duration
	now           func() time.Time
	log           *zap.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(store *repository.Store, bookings BookingCanceller, cfg *config.BookingConfig) *TaskHandler {
	expiry := 30 * time.Minute
	if cfg != nil && cfg.PendingExpiry > 0 {
		expiry = time.Duration(cfg.PendingExpiry) * time.Minute
	}
	return &TaskHandler{
		store:         store,
		bookings:      bookings,
		pendingExpiry: expiry,
		now:           time.Now,
		log:           logger.With(logger.Module("scheduler")),
	}
}

// SetClock 替换时钟
func (h *TaskHandler) SetClock(now func() time.Time) {
	h.now = now
}

// SetLogger 替换日志器
func (h *TaskHandler) SetLogger(log *zap.Logger) {
	h.log = log
}

// ExpirePendingBookings 取消超时未确认的预订
func (h *TaskHandler) ExpirePendingBookings(ctx context.Context) error {
	before := h.now().Add(-h.pendingExpiry)
	bookings, err := h.store.Reader().Bookings.ListPendingCreatedBefore(ctx, before, scanBatchSize)
	if err != nil {
		return err
	}
	if len(bookings) == 0 {
		return nil
	}

	h.log.Info("expiring pending bookings", zap.Int("count", len(bookings)))
	h.cancelAll(ctx, bookings, ReasonExpired)
	return nil
}

// CancelNoShows 取消入住日已过仍未到店的已确认预订，按未到店全额收费
func (h *TaskHandler) CancelNoShows(ctx context.Context) error {
	today := utils.TruncateDate(h.now())
	bookings, err := h.store.Reader().Bookings.ListNoShows(ctx, today, scanBatchSize)
	if err != nil {
		return err
	}
	if len(bookings) == 0 {
		return nil
	}

	h.log.Info("cancelling no-show bookings", zap.Int("count", len(bookings)))
	h.cancelAll(ctx, bookings, ReasonNoShow)
	return nil
}

// RetryPendingRefunds 为取消后退款失败的预订重新发起退款
func (h *TaskHandler) RetryPendingRefunds(ctx context.Context) error {
	before := h.now().Add(-refundGracePeriod)
	bookings, err := h.store.Reader().Bookings.ListPendingRefunds(ctx, before, scanBatchSize)
	if err != nil {
		return err
	}
	if len(bookings) == 0 {
		return nil
	}

	h.log.Info("retrying pending refunds", zap.Int("count", len(bookings)))
	var settled int
	for _, b := range bookings {
		if ctx.Err() != nil {
			break
		}
		_, err := h.bookings.SettleRefund(ctx, hotel.SystemActorID, b.ID)
		switch {
		case err == nil:
			settled++
		case errors.IsKind(err, errors.KindIllegalTransition):
			// 其他实例已登记
			h.log.Debug("refund already settled", logger.BookingID(b.ID))
		default:
			h.log.Warn("refund retry failed",
				logger.BookingID(b.ID), logger.BookingNo(b.BookingNo), logger.Err(err))
		}
	}
	h.log.Info("pending refunds retried", zap.Int("settled", settled), zap.Int("total", len(bookings)))
	return nil
}

// cancelAll 逐条取消，单条失败不影响其余预订
func (h *TaskHandler) cancelAll(ctx context.Context, bookings []*models.Booking, reason string) {
	for _, b := range bookings {
		if ctx.Err() != nil {
			return
		}
		_, err := h.bookings.CancelBooking(ctx, hotel.SystemActorID, b.ID, reason)
		switch {
		case err == nil:
		case errors.IsKind(err, errors.KindIllegalTransition):
			// 扫描后已被前台处理
			h.log.Debug("booking already transitioned", logger.BookingID(b.ID), zap.String("reason", reason))
		default:
			h.log.Error("cancel booking failed",
				logger.BookingID(b.ID), logger.BookingNo(b.BookingNo), zap.String("reason", reason), logger.Err(err))
		}
	}
}

// SetupTasks 注册预订相关的定时任务
func SetupTasks(scheduler *Scheduler, handler *TaskHandler, cfg *config.BookingConfig) {
	scheduler.AddTask("ExpirePendingBookings", time.Duration(cfg.PendingScanInterval)*time.Minute, handler.ExpirePendingBookings)
	scheduler.AddTask("CancelNoShows", time.Duration(cfg.NoShowScanInterval)*time.Minute, handler.CancelNoShows)
	scheduler.AddTask("RetryPendingRefunds", time.Duration(cfg.RefundRetryInterval)*time.Minute, handler.RetryPendingRefunds)
}
