// Package hotel 提供客房库存可用性与预订生命周期服务
package hotel

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/cache"
	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/metrics"
	"github.com/dumeirei/hotel-inventory/internal/common/tracing"
	"github.com/dumeirei/hotel-inventory/internal/common/utils"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
)

const catalogCacheName = "room_types"

// Available 计算房型在 [checkIn, checkOut) 内的可售房间数
// 可售 = 房间池（未删除且非维修停用） - 重叠的有效预订，最小为 0
func Available(ctx context.Context, uow *repository.UnitOfWork, propertyID, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	pool, err := uow.Rooms.CountPool(ctx, propertyID, roomTypeID)
	if err != nil {
		return 0, err
	}
	booked, err := uow.Bookings.CountActiveOverlapping(ctx, propertyID, roomTypeID, checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	if pool <= booked {
		return 0, nil
	}
	return int(pool - booked), nil
}

// validateStay 校验入住区间与人数，返回按 UTC 日期截断后的区间
func validateStay(checkIn, checkOut, now time.Time, guests int) (models.DateRange, error) {
	stay := models.DateRange{CheckIn: utils.TruncateDate(checkIn), CheckOut: utils.TruncateDate(checkOut)}
	if !stay.Valid() {
		return stay, errors.ErrInvalidDateRange
	}
	if stay.CheckIn.Before(utils.TruncateDate(now)) {
		return stay, errors.ErrCheckInInPast
	}
	if guests < 1 {
		return stay, errors.ErrInvalidParams.WithMessage("入住人数至少为 1")
	}
	return stay, nil
}

// SearchAvailabilityRequest 可用房型查询请求
type SearchAvailabilityRequest struct {
	PropertyID int64
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
}

// AvailableRoomType 单个房型的可用情况
type AvailableRoomType struct {
	RoomTypeID     int64           `json:"room_type_id"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	MaxOccupancy   int             `json:"max_occupancy"`
	AvailableRooms int             `json:"available_rooms"`
	Nights         int             `json:"nights"`
	PricePerNight  decimal.Decimal `json:"price_per_night"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}

// SearchAvailabilityResponse 可用房型查询结果
type SearchAvailabilityResponse struct {
	PropertyID int64                `json:"property_id"`
	CheckIn    string               `json:"check_in"`
	CheckOut   string               `json:"check_out"`
	Nights     int                  `json:"nights"`
	Guests     int                  `json:"guests"`
	RoomTypes  []*AvailableRoomType `json:"room_types"`
}

// AvailabilityService 可用性查询服务
type AvailabilityService struct {
	store   *repository.Store
	catalog *cache.Local[[]*models.RoomType]
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAvailabilityService 创建可用性查询服务，catalog 为 nil 时每次直接查库
func NewAvailabilityService(store *repository.Store, catalog *cache.Local[[]*models.RoomType], m *metrics.Metrics) *AvailabilityService {
	return &AvailabilityService{
		store:   store,
		catalog: catalog,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock 替换时钟
func (s *AvailabilityService) SetClock(now func() time.Time) {
	s.now = now
}

// SearchAvailability 查询门店在区间内可入住 guests 人的房型，无房的房型不返回
func (s *AvailabilityService) SearchAvailability(ctx context.Context, req *SearchAvailabilityRequest) (resp *SearchAvailabilityResponse, err error) {
	ctx, span := tracing.Start(ctx, "hotel.SearchAvailability", tracing.WithPropertyID(req.PropertyID))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAvailability("search", time.Since(start))
		}
	}()

	stay, err := validateStay(req.CheckIn, req.CheckOut, s.now(), req.Guests)
	if err != nil {
		return nil, err
	}

	// 检查门店
	reader := s.store.Reader()
	property, err := reader.Properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPropertyNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !repository.IsVisible(property) || !property.IsActive {
		return nil, errors.ErrPropertyNotFound
	}

	roomTypes, err := s.roomTypes(ctx, req.PropertyID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	nights := stay.Nights()
	resp = &SearchAvailabilityResponse{
		PropertyID: req.PropertyID,
		CheckIn:    stay.CheckIn.Format(utils.DateLayout),
		CheckOut:   stay.CheckOut.Format(utils.DateLayout),
		Nights:     nights,
		Guests:     req.Guests,
		RoomTypes:  make([]*AvailableRoomType, 0, len(roomTypes)),
	}
	for _, rt := range roomTypes {
		// 人数超限或已满房的房型不返回
		if rt.MaxOccupancy < req.Guests {
			continue
		}
		available, err := Available(ctx, reader, req.PropertyID, rt.ID, stay.CheckIn, stay.CheckOut)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if available <= 0 {
			continue
		}
		resp.RoomTypes = append(resp.RoomTypes, &AvailableRoomType{
			RoomTypeID:     rt.ID,
			Name:           rt.Name,
			Description:    rt.Description,
			MaxOccupancy:   rt.MaxOccupancy,
			AvailableRooms: available,
			Nights:         nights,
			PricePerNight:  rt.BasePrice,
			TotalPrice:     rt.BasePrice.Mul(decimal.NewFromInt(int64(nights))),
		})
	}
	return resp, nil
}

// roomTypes 门店可见房型目录，优先走进程内缓存
func (s *AvailabilityService) roomTypes(ctx context.Context, propertyID int64) ([]*models.RoomType, error) {
	load := func() ([]*models.RoomType, error) {
		return s.store.Reader().RoomTypes.ListByProperty(ctx, propertyID, 1)
	}
	if s.catalog == nil {
		return load()
	}

	missed := false
	roomTypes, err := s.catalog.Fetch(catalogKey(propertyID), func() ([]*models.RoomType, error) {
		missed = true
		return load()
	})
	if s.metrics != nil {
		if missed {
			s.metrics.RecordCacheMiss(catalogCacheName)
		} else {
			s.metrics.RecordCacheHit(catalogCacheName)
		}
	}
	return roomTypes, err
}

func catalogKey(propertyID int64) string {
	return cache.BuildKey(cache.KeyPrefixRoomType, strconv.FormatInt(propertyID, 10))
}
