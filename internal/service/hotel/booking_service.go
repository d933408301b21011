package hotel

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/auditctx"
	"github.com/dumeirei/hotel-inventory/internal/common/cache"
	"github.com/dumeirei/hotel-inventory/internal/common/config"
	"github.com/dumeirei/hotel-inventory/internal/common/database"
	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/metrics"
	"github.com/dumeirei/hotel-inventory/internal/common/tracing"
	"github.com/dumeirei/hotel-inventory/internal/common/utils"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
	"github.com/dumeirei/hotel-inventory/internal/service/notify"
	"github.com/dumeirei/hotel-inventory/pkg/payment"
)

// SystemActorID 定时任务等系统操作的操作人
const SystemActorID int64 = 0

// EventSink 领域事件出口，入队不得阻塞
type EventSink interface {
	Enqueue(events ...*notify.Event) int
}

// BookingService 预订生命周期服务
// 每个状态变更在一个事务内完成，预订、房间、清洁任务和审计日志同时提交或同时回滚
type BookingService struct {
	store   *repository.Store
	events  EventSink
	refunds payment.RefundGateway
	locker  *cache.Locker
	metrics *metrics.Metrics
	config  config.BookingConfig
	now     func() time.Time
	random  io.Reader
	log     *zap.Logger
}

// NewBookingService 创建预订服务，events、refunds、metrics 均可为 nil
func NewBookingService(
	store *repository.Store,
	events EventSink,
	refunds payment.RefundGateway,
	m *metrics.Metrics,
	cfg *config.BookingConfig,
) *BookingService {
	c := config.BookingConfig{MaxTxRetries: 3}
	if cfg != nil {
		c = *cfg
	}
	if c.MaxTxRetries < 0 {
		c.MaxTxRetries = 0
	}
	if c.RetryBackoffMs <= 0 {
		c.RetryBackoffMs = 20
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = "USD"
	}
	if c.BookingNoMaxAttempts <= 0 {
		c.BookingNoMaxAttempts = 5
	}

	return &BookingService{
		store:   store,
		events:  events,
		refunds: refunds,
		metrics: m,
		config:  c,
		now:     time.Now,
		log:     logger.With(logger.Module("booking")),
	}
}

// SetLocker 启用按房型的分布式锁
func (s *BookingService) SetLocker(locker *cache.Locker) {
	s.locker = locker
}

// SetClock 替换时钟
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// SetRandom 替换预订号随机源，nil 表示 crypto/rand
func (s *BookingService) SetRandom(random io.Reader) {
	s.random = random
}

// SetLogger 替换日志器
func (s *BookingService) SetLogger(log *zap.Logger) {
	s.log = log
}

// CreateBookingRequest 创建预订请求
type CreateBookingRequest struct {
	PropertyID      int64
	RoomTypeID      int64
	GuestID         int64
	CheckIn         time.Time
	CheckOut        time.Time
	NumGuests       int
	TotalAmount     *decimal.Decimal // 为空时按房型价格 × 晚数
	Currency        string
	SpecialRequests *string
}

// BookingInfo 预订信息
type BookingInfo struct {
	ID                 int64           `json:"id"`
	BookingNo          string          `json:"booking_number"`
	PropertyID         int64           `json:"property_id"`
	GuestID            int64           `json:"guest_id"`
	RoomTypeID         int64           `json:"room_type_id"`
	RoomTypeName       string          `json:"room_type_name,omitempty"`
	RoomID             *int64          `json:"room_id,omitempty"`
	RoomNumber         string          `json:"room_number,omitempty"`
	CheckInDate        string          `json:"check_in_date"`
	CheckOutDate       string          `json:"check_out_date"`
	Nights             int             `json:"nights"`
	NumGuests          int             `json:"num_guests"`
	SpecialRequests    *string         `json:"special_requests,omitempty"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	ActualCheckIn      *time.Time      `json:"actual_check_in,omitempty"`
	ActualCheckOut     *time.Time      `json:"actual_check_out,omitempty"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancellationCharge decimal.Decimal `json:"cancellation_charge"`
	RefundAmount       decimal.Decimal `json:"refund_amount"`
	RefundStatus       string          `json:"refund_status"`
	RefundID           *string         `json:"refund_id,omitempty"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CheckOutResult 退房结果
type CheckOutResult struct {
	Booking    *BookingInfo `json:"booking"`
	RoomID     int64        `json:"room_id"`
	RoomStatus string       `json:"room_status"`
	Task       *TaskInfo    `json:"housekeeping_task"`
}

// CancelResult 取消结果
type CancelResult struct {
	Booking           *BookingInfo    `json:"booking"`
	DaysBeforeCheckIn int             `json:"days_before_check_in"`
	Charge            decimal.Decimal `json:"charge"`
	Refund            decimal.Decimal `json:"refund"`
	RefundStatus      string          `json:"refund_status"`
	RefundID          string          `json:"refund_id,omitempty"`
}

// CreateBooking 创建待确认预订
func (s *BookingService) CreateBooking(ctx context.Context, actorID int64, req *CreateBookingRequest) (info *BookingInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.CreateBooking",
		tracing.WithActorID(actorID),
		tracing.WithPropertyID(req.PropertyID),
		tracing.WithRoomTypeID(req.RoomTypeID),
	)
	defer func() {
		s.record(models.BookingEventCreate, err)
		tracing.End(span, err)
	}()

	// 参数校验
	now := s.now()
	stay, err := validateStay(req.CheckIn, req.CheckOut, now, req.NumGuests)
	if err != nil {
		return nil, err
	}
	if req.GuestID <= 0 {
		return nil, errors.ErrInvalidParams.WithMessage("缺少客人信息")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	if !utils.IsCurrencyCode(currency) {
		return nil, errors.ErrInvalidCurrency
	}
	if req.TotalAmount != nil && req.TotalAmount.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	// 同一房型的下单跨实例串行
	unlock, err := s.lockRoomType(ctx, req.RoomTypeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		booking *models.Booking
		events  []*notify.Event
	)
	err = s.runTx(ctx, models.BookingEventCreate, func(uow *repository.UnitOfWork) error {
		events = nil

		// 检查门店
		property, err := uow.Properties.GetByID(ctx, req.PropertyID)
		if err != nil {
			return notFoundOr(err, errors.ErrPropertyNotFound)
		}
		if !repository.IsVisible(property) || !property.IsActive {
			return errors.ErrPropertyNotFound
		}

		// 锁定房型
		roomType, err := uow.RoomTypes.GetForUpdate(ctx, req.RoomTypeID)
		if err != nil {
			return notFoundOr(err, errors.ErrRoomTypeNotFound)
		}
		if !repository.IsVisible(roomType) || roomType.PropertyID != req.PropertyID {
			return errors.ErrRoomTypeNotFound
		}
		if roomType.MaxOccupancy < req.NumGuests {
			return errors.ErrGuestCountExceeded
		}

		// 检查库存
		available, err := Available(ctx, uow, req.PropertyID, req.RoomTypeID, stay.CheckIn, stay.CheckOut)
		if err != nil {
			return err
		}
		if available <= 0 {
			return errors.ErrNoRoomAvailable
		}

		// 计算金额：房型基础价 x 晚数，可被请求覆盖
		total := roomType.BasePrice.Mul(decimal.NewFromInt(int64(stay.Nights())))
		if req.TotalAmount != nil {
			total = *req.TotalAmount
		}

		bookingNo, err := s.newBookingNo(ctx, uow, now)
		if err != nil {
			return err
		}

		// 创建预订
		status, _ := models.BookingTransition("", models.BookingEventCreate)
		booking = &models.Booking{
			BookingNo:       bookingNo,
			PropertyID:      req.PropertyID,
			GuestID:         req.GuestID,
			RoomTypeID:      req.RoomTypeID,
			CheckInDate:     stay.CheckIn,
			CheckOutDate:    stay.CheckOut,
			NumGuests:       req.NumGuests,
			SpecialRequests: req.SpecialRequests,
			TotalAmount:     total,
			Currency:        currency,
			Status:          status,
			Version:         1,
			Meta:            models.Meta{CreatedAt: now, UpdatedAt: now},
		}
		if err := uow.Bookings.Create(ctx, booking); err != nil {
			return err
		}

		// 记录审计日志
		if err := writeAudit(ctx, uow, actorID, models.AuditActionCreate, models.AuditEntityBooking, booking.ID, models.JSON{
			"status":         models.Change(nil, status),
			"booking_number": bookingNo,
			"check_in_date":  stay.CheckIn.Format(utils.DateLayout),
			"check_out_date": stay.CheckOut.Format(utils.DateLayout),
			"total_amount":   total.StringFixed(2),
		}, now); err != nil {
			return err
		}

		booking.RoomType = roomType
		events = append(events, bookingEvent(notify.EventBookingCreated, booking, now))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 提交后再发布事件
	s.publish(events)
	s.logTransition(models.BookingEventCreate, actorID, booking, "")
	return toBookingInfo(booking), nil
}

// GetBooking 获取预订详情
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (info *BookingInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.GetBooking", tracing.WithBookingID(bookingID))
	defer func() { tracing.End(span, err) }()

	booking, err := s.store.Reader().Bookings.GetByIDWithDetails(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrBookingNotFound)
	}
	if !repository.IsVisible(booking) {
		return nil, errors.ErrBookingNotFound
	}
	return toBookingInfo(booking), nil
}

// GetBookingByNo 按预订号获取预订详情
func (s *BookingService) GetBookingByNo(ctx context.Context, bookingNo string) (info *BookingInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.GetBookingByNo")
	defer func() { tracing.End(span, err) }()

	// 预订号格式不对时不查库
	bookingNo = strings.ToUpper(strings.TrimSpace(bookingNo))
	if !utils.IsBookingNo(bookingNo) {
		return nil, errors.ErrInvalidBookingNo.WithDetail("booking_number", bookingNo)
	}

	booking, err := s.store.Reader().Bookings.GetByBookingNo(ctx, bookingNo)
	if err != nil {
		return nil, asAppError(notFoundOr(err, errors.ErrBookingNotFound))
	}
	if !repository.IsVisible(booking) {
		return nil, errors.ErrBookingNotFound
	}
	return toBookingInfo(booking), nil
}

// ListBookingAudit 获取预订的审计轨迹，按时间正序
func (s *BookingService) ListBookingAudit(ctx context.Context, bookingID int64) ([]*models.AuditLog, error) {
	reader := s.store.Reader()
	b, err := reader.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, asAppError(notFoundOr(err, errors.ErrBookingNotFound))
	}
	if !repository.IsVisible(b) {
		return nil, errors.ErrBookingNotFound
	}

	logs, err := reader.AuditLogs.ListByEntity(ctx, models.AuditEntityBooking, b.ID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return logs, nil
}

// ListBookingsRequest 预订列表查询
type ListBookingsRequest struct {
	PropertyID int64
	GuestID    int64
	Status     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ListBookings 按门店、状态、入住日期查询预订
func (s *BookingService) ListBookings(ctx context.Context, req *ListBookingsRequest) ([]*BookingInfo, int64, error) {
	filter := repository.BookingFilter{
		PropertyID: req.PropertyID,
		GuestID:    req.GuestID,
		From:       req.From,
		To:         req.To,
	}
	if req.Status != "" {
		status := models.BookingStatus(strings.ToUpper(req.Status))
		if !status.Valid() {
			return nil, 0, errors.ErrInvalidParams.WithMessage("无效的预订状态: " + req.Status)
		}
		filter.Status = status
	}

	page := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	page.Normalize()

	bookings, total, err := s.store.Reader().Bookings.List(ctx, page.GetOffset(), page.GetLimit(), filter)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*BookingInfo, 0, len(bookings))
	for _, b := range bookings {
		list = append(list, toBookingInfo(b))
	}
	return list, total, nil
}

// ConfirmBooking 确认预订，事务内重新校验可用性
func (s *BookingService) ConfirmBooking(ctx context.Context, actorID, bookingID int64) (info *BookingInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.ConfirmBooking", tracing.WithActorID(actorID), tracing.WithBookingID(bookingID))
	defer func() {
		s.record(models.BookingEventConfirm, err)
		tracing.End(span, err)
	}()

	unlock, err := s.lockBookingRoomType(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	var (
		booking *models.Booking
		events  []*notify.Event
	)
	err = s.runTx(ctx, models.BookingEventConfirm, func(uow *repository.UnitOfWork) error {
		events = nil

		b, err := loadBooking(ctx, uow, bookingID)
		if err != nil {
			return err
		}
		from := b.Status
		to, err := transition(b, models.BookingEventConfirm)
		if err != nil {
			return err
		}

		// 锁定房型后重新计算可用房间数
		if _, err := uow.RoomTypes.GetForUpdate(ctx, b.RoomTypeID); err != nil {
			return err
		}
		available, err := Available(ctx, uow, b.PropertyID, b.RoomTypeID, b.CheckInDate, b.CheckOutDate)
		if err != nil {
			return err
		}
		if available <= 0 {
			return errors.ErrNoRoomAvailable
		}

		// 版本号不一致时回滚重试
		if err := uow.Bookings.UpdateWithVersion(ctx, b, map[string]interface{}{
			"status":     to,
			"updated_at": now,
		}); err != nil {
			return err
		}
		b.Status = to
		repository.Touch(b, now)

		if err := writeAudit(ctx, uow, actorID, models.AuditActionConfirm, models.AuditEntityBooking, b.ID,
			models.JSON{"status": models.Change(from, to)}, now); err != nil {
			return err
		}

		booking = b
		events = append(events, bookingEvent(notify.EventBookingConfirmed, b, now))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events)
	s.logTransition(models.BookingEventConfirm, actorID, booking, models.BookingStatusPending)
	return toBookingInfo(booking), nil
}

// CheckIn 办理入住并分配房间，requestedRoomID 为空时自动分配
func (s *BookingService) CheckIn(ctx context.Context, actorID, bookingID int64, requestedRoomID *int64) (info *BookingInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.CheckIn", tracing.WithActorID(actorID), tracing.WithBookingID(bookingID))
	defer func() {
		s.record(models.BookingEventCheckIn, err)
		tracing.End(span, err)
	}()

	unlock, err := s.lockBookingRoomType(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	var (
		booking *models.Booking
		events  []*notify.Event
	)
	err = s.runTx(ctx, models.BookingEventCheckIn, func(uow *repository.UnitOfWork) error {
		events = nil

		b, err := loadBooking(ctx, uow, bookingID)
		if err != nil {
			return err
		}
		from := b.Status
		to, err := transition(b, models.BookingEventCheckIn)
		if err != nil {
			return err
		}

		// 选房：指定房间或按房号取第一间空净房
		room, err := ResolveRoom(ctx, uow, b, requestedRoomID)
		if err != nil {
			return err
		}
		// 条件更新，房间被并发入住抢走时返回 ErrStaleWrite 并整体重试
		if err := uow.Rooms.TransitionStatus(ctx, room.ID, []models.RoomStatus{room.Status}, models.RoomStatusOccupied, now); err != nil {
			return err
		}

		if err := uow.Bookings.UpdateWithVersion(ctx, b, map[string]interface{}{
			"status":          to,
			"room_id":         room.ID,
			"actual_check_in": now,
			"updated_at":      now,
		}); err != nil {
			return err
		}
		b.Status = to
		b.RoomID = &room.ID
		b.ActualCheckIn = &now
		repository.Touch(b, now)

		if err := writeAudit(ctx, uow, actorID, models.AuditActionCheckIn, models.AuditEntityBooking, b.ID, models.JSON{
			"status":  models.Change(from, to),
			"room_id": models.Change(nil, room.ID),
		}, now); err != nil {
			return err
		}
		// 房间状态单独留痕
		if err := writeAudit(ctx, uow, actorID, models.AuditActionCheckIn, models.AuditEntityRoom, room.ID,
			models.JSON{"status": models.Change(room.Status, models.RoomStatusOccupied)}, now); err != nil {
			return err
		}

		room.Status = models.RoomStatusOccupied
		b.Room = room
		booking = b
		events = append(events, bookingEvent(notify.EventBookingCheckedIn, b, now).With("room_number", room.RoomNumber))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events)
	s.logTransition(models.BookingEventCheckIn, actorID, booking, models.BookingStatusConfirmed)
	return toBookingInfo(booking), nil
}

// CheckOut 办理退房，房间置为空脏并生成清洁任务
func (s *BookingService) CheckOut(ctx context.Context, actorID, bookingID int64) (result *CheckOutResult, err error) {
	ctx, span := tracing.Start(ctx, "hotel.CheckOut", tracing.WithActorID(actorID), tracing.WithBookingID(bookingID))
	defer func() {
		s.record(models.BookingEventCheckOut, err)
		tracing.End(span, err)
	}()

	now := s.now()
	var events []*notify.Event
	err = s.runTx(ctx, models.BookingEventCheckOut, func(uow *repository.UnitOfWork) error {
		events = nil

		b, err := loadBooking(ctx, uow, bookingID)
		if err != nil {
			return err
		}
		from := b.Status
		to, err := transition(b, models.BookingEventCheckOut)
		if err != nil {
			return err
		}
		if b.RoomID == nil {
			return errors.ErrInternalError.WithError(fmt.Errorf("checked-in booking %d has no room", b.ID))
		}
		roomID := *b.RoomID

		// 已入住预订的房间必须处于占用状态
		err = uow.Rooms.TransitionStatus(ctx, roomID,
			[]models.RoomStatus{models.RoomStatusOccupied}, models.RoomStatusVacantDirty, now)
		if stderrors.Is(err, repository.ErrStaleWrite) {
			return errors.ErrInternalError.WithError(fmt.Errorf("room %d of checked-in booking %d is not occupied", roomID, b.ID))
		}
		if err != nil {
			return err
		}

		if err := uow.Bookings.UpdateWithVersion(ctx, b, map[string]interface{}{
			"status":           to,
			"actual_check_out": now,
			"updated_at":       now,
		}); err != nil {
			return err
		}
		b.Status = to
		b.ActualCheckOut = &now
		repository.Touch(b, now)

		// 生成清洁任务
		task := &models.HousekeepingTask{
			RoomID:    roomID,
			BookingID: &b.ID,
			TaskType:  models.TaskTypeCleaning,
			Priority:  models.TaskPriorityNormal,
			Status:    models.TaskStatusPending,
			Meta:      models.Meta{CreatedAt: now, UpdatedAt: now},
		}
		if err := uow.Housekeeping.Create(ctx, task); err != nil {
			return err
		}

		if err := writeAudit(ctx, uow, actorID, models.AuditActionCheckOut, models.AuditEntityBooking, b.ID,
			models.JSON{"status": models.Change(from, to)}, now); err != nil {
			return err
		}
		if err := writeAudit(ctx, uow, actorID, models.AuditActionCheckOut, models.AuditEntityRoom, roomID,
			models.JSON{"status": models.Change(models.RoomStatusOccupied, models.RoomStatusVacantDirty)}, now); err != nil {
			return err
		}
		if err := writeAudit(ctx, uow, actorID, models.AuditActionCreate, models.AuditEntityHousekeepingTask, task.ID, models.JSON{
			"task_type": task.TaskType,
			"status":    models.Change(nil, task.Status),
		}, now); err != nil {
			return err
		}

		result = &CheckOutResult{
			Booking:    toBookingInfo(b),
			RoomID:     roomID,
			RoomStatus: string(models.RoomStatusVacantDirty),
			Task:       toTaskInfo(task),
		}
		taskEvent := notify.NewEvent(notify.EventTaskCreated, b.PropertyID, now).
			With("task_id", task.ID).
			With("task_type", task.TaskType).
			With("priority", task.Priority)
		taskEvent.BookingID = b.ID
		taskEvent.BookingNo = b.BookingNo
		taskEvent.RoomID = &roomID
		events = append(events, bookingEvent(notify.EventBookingCheckedOut, b, now), taskEvent)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events)
	if s.metrics != nil {
		s.metrics.RecordHousekeeping(models.TaskTypeCleaning, models.TaskStatusPending)
	}
	s.log.Info("booking transition",
		logger.Event(string(models.BookingEventCheckOut)),
		logger.ActorID(actorID),
		logger.BookingID(bookingID),
		logger.RoomID(result.RoomID),
		zap.Int64("task_id", result.Task.ID),
	)
	return result, nil
}

// CancelBooking 取消预订，按取消政策计算费用
// 已确认预订的退款在取消提交后发起，网关失败时保留待退款状态由定时任务重试
func (s *BookingService) CancelBooking(ctx context.Context, actorID, bookingID int64, reason string) (result *CancelResult, err error) {
	ctx, span := tracing.Start(ctx, "hotel.CancelBooking", tracing.WithActorID(actorID), tracing.WithBookingID(bookingID))
	defer func() {
		s.record(models.BookingEventCancel, err)
		tracing.End(span, err)
	}()

	now := s.now()
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}

	var (
		from      models.BookingStatus
		cancelled *models.Booking
		events    []*notify.Event
	)
	err = s.runTx(ctx, models.BookingEventCancel, func(uow *repository.UnitOfWork) error {
		events = nil

		b, err := loadBooking(ctx, uow, bookingID)
		if err != nil {
			return err
		}
		from = b.Status
		to, err := transition(b, models.BookingEventCancel)
		if err != nil {
			return err
		}

		// 计算取消费用，charge + refund 恒等于订单金额
		quote := EvaluateCancellation(b.CheckInDate, b.TotalAmount, now)

		// 只有已确认预订产生实际退款
		refundStatus := models.RefundStatusNone
		if from == models.BookingStatusConfirmed && quote.Refund.IsPositive() && s.refunds != nil {
			refundStatus = models.RefundStatusPending
		}

		if err := uow.Bookings.UpdateWithVersion(ctx, b, map[string]interface{}{
			"status":              to,
			"cancellation_reason": reasonPtr,
			"cancelled_at":        now,
			"cancellation_charge": quote.Charge,
			"refund_amount":       quote.Refund,
			"refund_status":       refundStatus,
			"updated_at":          now,
		}); err != nil {
			return err
		}
		b.Status = to
		b.CancellationReason = reasonPtr
		b.CancelledAt = &now
		b.CancellationCharge = quote.Charge
		b.RefundAmount = quote.Refund
		b.RefundStatus = refundStatus
		repository.Touch(b, now)

		if err := writeAudit(ctx, uow, actorID, models.AuditActionCancel, models.AuditEntityBooking, b.ID, models.JSON{
			"status":              models.Change(from, to),
			"reason":              utils.SafeString(reasonPtr),
			"cancellation_charge": quote.Charge.StringFixed(2),
			"refund_amount":       quote.Refund.StringFixed(2),
			"refund_status":       string(refundStatus),
		}, now); err != nil {
			return err
		}

		cancelled = b
		result = &CancelResult{
			DaysBeforeCheckIn: quote.DaysBeforeCheckIn,
			Charge:            quote.Charge,
			Refund:            quote.Refund,
		}
		events = append(events, bookingEvent(notify.EventBookingCancelled, b, now).
			With("charge", quote.Charge.StringFixed(2)).
			With("refund", quote.Refund.StringFixed(2)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 取消已提交，退款失败不回滚取消
	if cancelled.RefundStatus == models.RefundStatusPending {
		if err := s.settleRefund(ctx, actorID, cancelled); err != nil {
			s.log.Warn("refund deferred",
				logger.BookingID(cancelled.ID),
				logger.BookingNo(cancelled.BookingNo),
				zap.String("refund", cancelled.RefundAmount.StringFixed(2)),
				logger.Err(err),
			)
		}
	}
	result.Booking = toBookingInfo(cancelled)
	result.RefundStatus = string(cancelled.RefundStatus)
	result.RefundID = utils.SafeString(cancelled.RefundID)

	s.publish(events)
	s.log.Info("booking transition",
		logger.Event(string(models.BookingEventCancel)),
		logger.ActorID(actorID),
		logger.BookingID(bookingID),
		logger.BookingNo(cancelled.BookingNo),
		zap.String("from", string(from)),
		zap.String("charge", result.Charge.StringFixed(2)),
		zap.String("refund", result.Refund.StringFixed(2)),
		zap.String("refund_status", result.RefundStatus),
	)
	return result, nil
}

// SettleRefund 为已取消且待退款的预订重新发起退款
func (s *BookingService) SettleRefund(ctx context.Context, actorID, bookingID int64) (info *BookingInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.SettleRefund", tracing.WithActorID(actorID), tracing.WithBookingID(bookingID))
	defer func() { tracing.End(span, err) }()

	b, err := s.store.Reader().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, asAppError(notFoundOr(err, errors.ErrBookingNotFound))
	}
	if !repository.IsVisible(b) {
		return nil, errors.ErrBookingNotFound
	}
	if b.Status != models.BookingStatusCancelled || b.RefundStatus != models.RefundStatusPending {
		return nil, errors.ErrRefundNotPending.
			WithDetail("state", string(b.Status)).
			WithDetail("refund_status", string(b.RefundStatus))
	}

	if err := s.settleRefund(ctx, actorID, b); err != nil {
		return nil, err
	}
	return toBookingInfo(b), nil
}

// settleRefund 调用退款网关并在短事务内登记结果
// 退款单号固定为 RF + 预订号，网关按单号幂等，重复调用不会重复退款
func (s *BookingService) settleRefund(ctx context.Context, actorID int64, b *models.Booking) error {
	if s.refunds == nil {
		return errors.ErrRefundFailed.WithMessage("未配置退款网关")
	}

	res, err := s.refunds.Refund(ctx, &payment.RefundRequest{
		OutRefundNo: refundNo(b),
		BookingNo:   b.BookingNo,
		Total:       b.TotalAmount,
		Refund:      b.RefundAmount,
		Currency:    b.Currency,
		Reason:      utils.SafeString(b.CancellationReason),
	})
	if err != nil {
		return errors.ErrRefundFailed.WithError(err)
	}

	now := s.now()
	var settled *models.Booking
	err = s.runTx(ctx, models.BookingEventCancel, func(uow *repository.UnitOfWork) error {
		cur, err := loadBooking(ctx, uow, b.ID)
		if err != nil {
			return err
		}
		// 并发重试已登记过
		if cur.RefundStatus != models.RefundStatusPending {
			settled = cur
			return nil
		}

		if err := uow.Bookings.UpdateWithVersion(ctx, cur, map[string]interface{}{
			"refund_status": models.RefundStatusRefunded,
			"refund_id":     res.RefundID,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		cur.RefundStatus = models.RefundStatusRefunded
		cur.RefundID = &res.RefundID
		repository.Touch(cur, now)

		if err := writeAudit(ctx, uow, actorID, models.AuditActionRefund, models.AuditEntityBooking, cur.ID, models.JSON{
			"refund_status": models.Change(models.RefundStatusPending, models.RefundStatusRefunded),
			"refund_id":     res.RefundID,
			"refund_amount": cur.RefundAmount.StringFixed(2),
		}, now); err != nil {
			return err
		}
		settled = cur
		return nil
	})
	if err != nil {
		// 网关已受理，登记失败时保持待退款，下次重试按同一单号取回结果
		return err
	}

	*b = *settled
	s.log.Info("refund settled",
		logger.BookingID(b.ID),
		logger.BookingNo(b.BookingNo),
		zap.String("refund_id", utils.SafeString(b.RefundID)),
		zap.String("amount", b.RefundAmount.StringFixed(2)),
	)
	return nil
}

func refundNo(b *models.Booking) string {
	return "RF" + b.BookingNo
}

// runTx 在事务中执行 fn，并发冲突时带抖动退避重试，重试耗尽返回 ErrBookingConflict
func (s *BookingService) runTx(ctx context.Context, op models.BookingEvent, fn func(uow *repository.UnitOfWork) error) error {
	attempts := s.config.MaxTxRetries + 1
	for attempt := 1; ; attempt++ {
		err := s.store.InTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !database.IsRetryable(err) {
			return asAppError(err)
		}
		if attempt >= attempts {
			if s.metrics != nil {
				s.metrics.RecordTxConflict(string(op))
			}
			s.log.Warn("transaction retries exhausted",
				logger.Action(string(op)), logger.Attempt(attempt), logger.Err(err))
			return errors.ErrBookingConflict.WithError(err)
		}

		if s.metrics != nil {
			s.metrics.RecordTxRetry(string(op))
		}
		s.log.Warn("transaction conflict, retrying",
			logger.Action(string(op)), logger.Attempt(attempt), logger.Err(err))
		if err := sleep(ctx, s.backoff(attempt)); err != nil {
			return errors.ErrBookingConflict.WithError(err)
		}
	}
}

// backoff 指数退避加随机抖动
func (s *BookingService) backoff(attempt int) time.Duration {
	base := s.config.RetryBackoff()
	d := base << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(base)))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lockRoomType 获取房型分布式锁，未启用时返回空操作
func (s *BookingService) lockRoomType(ctx context.Context, roomTypeID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	ttl := time.Duration(s.config.LockTTL) * time.Second
	key := cache.BuildKey(cache.KeyPrefixLock, "room_type", strconv.FormatInt(roomTypeID, 10))
	lock, err := s.locker.Acquire(ctx, key, ttl, ttl)
	if err != nil {
		s.log.Warn("acquire room type lock failed", logger.RoomTypeID(roomTypeID), logger.Err(err))
		return nil, errors.ErrBookingConflict.WithError(err)
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release room type lock failed", logger.RoomTypeID(roomTypeID), logger.Err(err))
		}
	}, nil
}

// lockBookingRoomType 按预订所属房型加锁
func (s *BookingService) lockBookingRoomType(ctx context.Context, bookingID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	b, err := s.store.Reader().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrBookingNotFound)
	}
	if !repository.IsVisible(b) {
		return nil, errors.ErrBookingNotFound
	}
	return s.lockRoomType(ctx, b.RoomTypeID)
}

// newBookingNo 生成事务内未被占用的预订号
func (s *BookingService) newBookingNo(ctx context.Context, uow *repository.UnitOfWork, now time.Time) (string, error) {
	for i := 0; i < s.config.BookingNoMaxAttempts; i++ {
		no, err := utils.GenerateBookingNo(now, s.random)
		if err != nil {
			return "", errors.ErrBookingNoGeneration.WithError(err)
		}
		exists, err := uow.Bookings.ExistsByBookingNo(ctx, no)
		if err != nil {
			return "", err
		}
		if !exists {
			return no, nil
		}
		s.log.Warn("booking number collision", logger.BookingNo(no), logger.Attempt(i+1))
	}
	return "", errors.ErrBookingNoGeneration
}

func (s *BookingService) publish(events []*notify.Event) {
	if s.events != nil && len(events) > 0 {
		s.events.Enqueue(events...)
	}
}

func (s *BookingService) record(event models.BookingEvent, err error) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(event), transitionResult(err))
	}
}

func (s *BookingService) logTransition(event models.BookingEvent, actorID int64, b *models.Booking, from models.BookingStatus) {
	fields := []zap.Field{
		logger.Event(string(event)),
		logger.ActorID(actorID),
		logger.BookingID(b.ID),
		logger.BookingNo(b.BookingNo),
		zap.String("to", string(b.Status)),
	}
	if from != "" {
		fields = append(fields, zap.String("from", string(from)))
	}
	if b.RoomID != nil {
		fields = append(fields, logger.RoomID(*b.RoomID))
	}
	s.log.Info("booking transition", fields...)
}

// transitionResult 指标中的结果标签
func transitionResult(err error) string {
	switch errors.KindOf(err) {
	case "":
		return "ok"
	case errors.KindConflict:
		return "conflict"
	case errors.KindInternal:
		return "error"
	default:
		return "rejected"
	}
}

// loadBooking 事务内读取预订，软删除视为不存在
func loadBooking(ctx context.Context, uow *repository.UnitOfWork, bookingID int64) (*models.Booking, error) {
	b, err := uow.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrBookingNotFound)
	}
	if !repository.IsVisible(b) {
		return nil, errors.ErrBookingNotFound
	}
	if !b.Status.Valid() {
		return nil, errors.ErrInternalError.WithError(fmt.Errorf("booking %d has unknown status %q", b.ID, b.Status))
	}
	return b, nil
}

func transition(b *models.Booking, event models.BookingEvent) (models.BookingStatus, error) {
	to, ok := models.BookingTransition(b.Status, event)
	if !ok {
		return "", errors.IllegalTransition(string(b.Status), string(event))
	}
	return to, nil
}

// notFoundOr 记录不存在时返回 notFound，其余错误原样返回交由重试分类
func notFoundOr(err error, notFound *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// asAppError 非业务错误统一包装为数据库错误
func asAppError(err error) error {
	if errors.IsAppError(err) {
		return err
	}
	return errors.ErrDatabaseError.WithError(err)
}

// writeAudit 在当前事务内写审计日志
func writeAudit(ctx context.Context, uow *repository.UnitOfWork, actorID int64, action, entityType string, entityID int64, changes models.JSON, now time.Time) error {
	client := auditctx.ClientFrom(ctx)
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Timestamp:  now,
	}
	if client.IP != "" {
		entry.IPAddress = &client.IP
	}
	if client.UserAgent != "" {
		entry.UserAgent = &client.UserAgent
	}
	return uow.AuditLogs.Create(ctx, entry)
}

func bookingEvent(eventType string, b *models.Booking, now time.Time) *notify.Event {
	e := notify.NewEvent(eventType, b.PropertyID, now).
		With("status", string(b.Status)).
		With("room_type_id", b.RoomTypeID).
		With("check_in_date", b.CheckInDate.Format(utils.DateLayout)).
		With("check_out_date", b.CheckOutDate.Format(utils.DateLayout))
	e.BookingID = b.ID
	e.BookingNo = b.BookingNo
	e.RoomID = b.RoomID
	return e
}

func toBookingInfo(b *models.Booking) *BookingInfo {
	info := &BookingInfo{
		ID:                 b.ID,
		BookingNo:          b.BookingNo,
		PropertyID:         b.PropertyID,
		GuestID:            b.GuestID,
		RoomTypeID:         b.RoomTypeID,
		RoomID:             b.RoomID,
		CheckInDate:        b.CheckInDate.UTC().Format(utils.DateLayout),
		CheckOutDate:       b.CheckOutDate.UTC().Format(utils.DateLayout),
		Nights:             b.Range().Nights(),
		NumGuests:          b.NumGuests,
		SpecialRequests:    b.SpecialRequests,
		TotalAmount:        b.TotalAmount,
		Currency:           b.Currency,
		Status:             string(b.Status),
		ActualCheckIn:      b.ActualCheckIn,
		ActualCheckOut:     b.ActualCheckOut,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		CancellationCharge: b.CancellationCharge,
		RefundAmount:       b.RefundAmount,
		RefundStatus:       string(b.RefundStatus),
		RefundID:           b.RefundID,
		Version:            b.Version,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.RoomType != nil {
		info.RoomTypeName = b.RoomType.Name
	}
	if b.Room != nil {
		info.RoomNumber = b.Room.RoomNumber
	}
	return info
}
