package hotel

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/utils"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
)

// PropertyService 门店目录服务
type PropertyService struct {
	store *repository.Store
}

// NewPropertyService 创建门店目录服务
func NewPropertyService(store *repository.Store) *PropertyService {
	return &PropertyService{store: store}
}

// PropertyListRequest 门店列表请求
type PropertyListRequest struct {
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"page_size" json:"page_size"`
	City     string `form:"city" json:"city"`
}

// PropertyInfo 门店信息
type PropertyInfo struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	City      string          `json:"city"`
	Country   string          `json:"country"`
	Timezone  string          `json:"timezone"`
	RoomTypes []*RoomTypeInfo `json:"room_types,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// RoomTypeInfo 房型信息
type RoomTypeInfo struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	MaxOccupancy int             `json:"max_occupancy"`
	BasePrice    decimal.Decimal `json:"base_price"`
	SizeSqm      *float64        `json:"size_sqm,omitempty"`
}

// RoomInfo 房间信息
type RoomInfo struct {
	ID         int64  `json:"id"`
	RoomTypeID int64  `json:"room_type_id"`
	RoomNumber string `json:"room_number"`
	Floor      *int   `json:"floor,omitempty"`
	Status     string `json:"status"`
}

// ListProperties 获取营业中的门店列表
func (s *PropertyService) ListProperties(ctx context.Context, req *PropertyListRequest) ([]*PropertyInfo, int64, error) {
	page := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	page.Normalize()

	properties, total, err := s.store.Reader().Properties.List(ctx, page.GetOffset(), page.GetLimit(), strings.TrimSpace(req.City))
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}

	list := make([]*PropertyInfo, 0, len(properties))
	for _, p := range properties {
		list = append(list, toPropertyInfo(p))
	}
	return list, total, nil
}

// GetProperty 获取门店及其可见房型
func (s *PropertyService) GetProperty(ctx context.Context, id int64) (*PropertyInfo, error) {
	property, err := s.store.Reader().Properties.GetWithRoomTypes(ctx, id)
	if err != nil {
		return nil, asAppError(notFoundOr(err, errors.ErrPropertyNotFound))
	}
	if !property.IsActive {
		return nil, errors.ErrPropertyNotFound
	}

	info := toPropertyInfo(property)
	info.RoomTypes = make([]*RoomTypeInfo, 0, len(property.RoomTypes))
	for i := range property.RoomTypes {
		rt := &property.RoomTypes[i]
		info.RoomTypes = append(info.RoomTypes, &RoomTypeInfo{
			ID:           rt.ID,
			Name:         rt.Name,
			Description:  rt.Description,
			MaxOccupancy: rt.MaxOccupancy,
			BasePrice:    rt.BasePrice,
			SizeSqm:      rt.SizeSqm,
		})
	}
	return info, nil
}

// ListRooms 获取门店房间及状态，status 为空时返回全部
func (s *PropertyService) ListRooms(ctx context.Context, propertyID int64, status string) ([]*RoomInfo, error) {
	var filter models.RoomStatus
	if status != "" {
		filter = models.RoomStatus(strings.ToUpper(status))
		if !filter.Valid() {
			return nil, errors.ErrInvalidParams.WithMessage("无效的房间状态: " + status)
		}
	}

	rooms, err := s.store.Reader().Rooms.ListByProperty(ctx, propertyID, filter)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		list = append(list, &RoomInfo{
			ID:         r.ID,
			RoomTypeID: r.RoomTypeID,
			RoomNumber: r.RoomNumber,
			Floor:      r.Floor,
			Status:     string(r.Status),
		})
	}
	return list, nil
}

func toPropertyInfo(p *models.Property) *PropertyInfo {
	return &PropertyInfo{
		ID:        p.ID,
		Name:      p.Name,
		Address:   p.Address,
		City:      p.City,
		Country:   p.Country,
		Timezone:  p.Timezone,
		CreatedAt: p.CreatedAt,
	}
}
