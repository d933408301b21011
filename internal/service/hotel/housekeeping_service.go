package hotel

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/metrics"
	"github.com/dumeirei/hotel-inventory/internal/common/tracing"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
)

// HousekeepingService 客房清洁任务服务
type HousekeepingService struct {
	store   *repository.Store
	metrics *metrics.Metrics
	now     func() time.Time
	log     *zap.Logger
}

// NewHousekeepingService 创建清洁任务服务
func NewHousekeepingService(store *repository.Store, m *metrics.Metrics) *HousekeepingService {
	return &HousekeepingService{
		store:   store,
		metrics: m,
		now:     time.Now,
		log:     logger.With(logger.Module("housekeeping")),
	}
}

// SetClock 替换时钟
func (s *HousekeepingService) SetClock(now func() time.Time) {
	s.now = now
}

// TaskInfo 清洁任务信息
type TaskInfo struct {
	ID              int64      `json:"id"`
	RoomID          int64      `json:"room_id"`
	RoomNumber      string     `json:"room_number,omitempty"`
	BookingID       *int64     `json:"booking_id,omitempty"`
	AssignedTo      *int64     `json:"assigned_to,omitempty"`
	TaskType        string     `json:"task_type"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// 清洁完成后房间状态的变化
var taskRoomTransitions = map[string]struct {
	from []models.RoomStatus
	to   models.RoomStatus
}{
	models.TaskTypeCleaning:   {from: []models.RoomStatus{models.RoomStatusVacantDirty}, to: models.RoomStatusCleanReady},
	models.TaskTypeInspection: {from: []models.RoomStatus{models.RoomStatusVacantDirty, models.RoomStatusCleanReady}, to: models.RoomStatusInspected},
}

// ListPending 门店未完成的清洁任务，按优先级排序
func (s *HousekeepingService) ListPending(ctx context.Context, propertyID int64) ([]*TaskInfo, error) {
	tasks, err := s.store.Reader().Housekeeping.ListOpenByProperty(ctx, propertyID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		list = append(list, toTaskInfo(t))
	}
	return list, nil
}

// StartTask 开始任务：pending → in_progress
func (s *HousekeepingService) StartTask(ctx context.Context, actorID, taskID, staffID int64) (info *TaskInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.StartTask", tracing.WithActorID(actorID))
	defer func() { tracing.End(span, err) }()

	// 未指定执行人时由操作员本人执行
	if staffID <= 0 {
		staffID = actorID
	}
	now := s.now()

	var task *models.HousekeepingTask
	err = s.store.InTx(ctx, func(uow *repository.UnitOfWork) error {
		t, err := loadTask(ctx, uow, taskID)
		if err != nil {
			return err
		}
		if t.Status != models.TaskStatusPending {
			return errors.ErrTaskStatusError.WithDetail("status", t.Status)
		}

		// 条件更新，并发领取时只有一个成功
		if err := uow.Housekeeping.UpdateFrom(ctx, t.ID, []string{models.TaskStatusPending}, map[string]interface{}{
			"status":      models.TaskStatusInProgress,
			"assigned_to": staffID,
			"start_time":  now,
			"updated_at":  now,
		}); err != nil {
			return taskWriteError(err)
		}
		t.Status = models.TaskStatusInProgress
		t.AssignedTo = &staffID
		t.StartTime = &now
		repository.Touch(t, now)

		task = t
		return writeAudit(ctx, uow, actorID, models.AuditActionUpdate, models.AuditEntityHousekeepingTask, t.ID, models.JSON{
			"status":      models.Change(models.TaskStatusPending, models.TaskStatusInProgress),
			"assigned_to": staffID,
		}, now)
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.recordTask(task)
	s.log.Info("housekeeping task started", zap.Int64("task_id", task.ID), logger.RoomID(task.RoomID), logger.ActorID(actorID))
	return toTaskInfo(task), nil
}

// CompleteTask 完成任务；清洁任务把空脏房置为空净，查房任务置为已查房
func (s *HousekeepingService) CompleteTask(ctx context.Context, actorID, taskID int64, notes string) (info *TaskInfo, err error) {
	ctx, span := tracing.Start(ctx, "hotel.CompleteTask", tracing.WithActorID(actorID))
	defer func() { tracing.End(span, err) }()

	now := s.now()
	var notesPtr *string
	if n := strings.TrimSpace(notes); n != "" {
		notesPtr = &n
	}

	var task *models.HousekeepingTask
	err = s.store.InTx(ctx, func(uow *repository.UnitOfWork) error {
		t, err := loadTask(ctx, uow, taskID)
		if err != nil {
			return err
		}
		from := t.Status
		if from != models.TaskStatusPending && from != models.TaskStatusInProgress {
			return errors.ErrTaskStatusError.WithDetail("status", from)
		}

		fields := map[string]interface{}{
			"status":     models.TaskStatusCompleted,
			"end_time":   now,
			"updated_at": now,
		}
		if notesPtr != nil {
			fields["notes"] = *notesPtr
			t.Notes = notesPtr
		}
		if err := uow.Housekeeping.UpdateFrom(ctx, t.ID, []string{from}, fields); err != nil {
			return taskWriteError(err)
		}
		t.Status = models.TaskStatusCompleted
		t.EndTime = &now
		repository.Touch(t, now)

		if err := writeAudit(ctx, uow, actorID, models.AuditActionUpdate, models.AuditEntityHousekeepingTask, t.ID,
			models.JSON{"status": models.Change(from, models.TaskStatusCompleted)}, now); err != nil {
			return err
		}

		// 同步房间状态
		if rule, ok := taskRoomTransitions[t.TaskType]; ok {
			room, err := uow.Rooms.GetByID(ctx, t.RoomID)
			if err != nil {
				return notFoundOr(err, errors.ErrRoomNotFound)
			}
			err = uow.Rooms.TransitionStatus(ctx, room.ID, rule.from, rule.to, now)
			switch {
			case stderrors.Is(err, repository.ErrStaleWrite):
				// 房间已不在可转换状态（如维修停用），保留原状态
				s.log.Warn("room status left unchanged after task",
					zap.Int64("task_id", t.ID), logger.RoomID(room.ID), zap.String("room_status", string(room.Status)))
			case err != nil:
				return err
			default:
				if err := writeAudit(ctx, uow, actorID, models.AuditActionUpdate, models.AuditEntityRoom, room.ID,
					models.JSON{"status": models.Change(room.Status, rule.to)}, now); err != nil {
					return err
				}
				room.Status = rule.to
			}
			t.Room = room
		}

		task = t
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.recordTask(task)
	s.log.Info("housekeeping task completed", zap.Int64("task_id", task.ID), logger.RoomID(task.RoomID), logger.ActorID(actorID))
	return toTaskInfo(task), nil
}

func (s *HousekeepingService) recordTask(t *models.HousekeepingTask) {
	if s.metrics != nil {
		s.metrics.RecordHousekeeping(t.TaskType, t.Status)
	}
}

func loadTask(ctx context.Context, uow *repository.UnitOfWork, taskID int64) (*models.HousekeepingTask, error) {
	t, err := uow.Housekeeping.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrTaskNotFound)
	}
	return t, nil
}

// taskWriteError 条件更新未命中说明任务状态已被并发修改
func taskWriteError(err error) error {
	if stderrors.Is(err, repository.ErrStaleWrite) {
		return errors.ErrTaskStatusError
	}
	return err
}

func toTaskInfo(t *models.HousekeepingTask) *TaskInfo {
	info := &TaskInfo{
		ID:              t.ID,
		RoomID:          t.RoomID,
		BookingID:       t.BookingID,
		AssignedTo:      t.AssignedTo,
		TaskType:        t.TaskType,
		Priority:        t.Priority,
		Status:          t.Status,
		StartTime:       t.StartTime,
		EndTime:         t.EndTime,
		DurationMinutes: t.DurationMinutes(),
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt,
	}
	if t.Room != nil {
		info.RoomNumber = t.Room.RoomNumber
	}
	return info
}
