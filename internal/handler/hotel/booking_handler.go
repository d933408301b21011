package hotel

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dumeirei/hotel-inventory/internal/common/handler"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
	hotelService "github.com/dumeirei/hotel-inventory/internal/service/hotel"
)

// BookingHandler 预订处理器
type BookingHandler struct {
	bookingService *hotelService.BookingService
}

// NewBookingHandler 创建预订处理器
func NewBookingHandler(bookingSvc *hotelService.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingSvc,
	}
}

// CreateBookingRequest 创建预订请求
type CreateBookingRequest struct {
	PropertyID      int64            `json:"property_id" binding:"required"`
	RoomTypeID      int64            `json:"room_type_id" binding:"required"`
	GuestID         int64            `json:"guest_id" binding:"required"`
	CheckInDate     string           `json:"check_in_date" binding:"required"`
	CheckOutDate    string           `json:"check_out_date" binding:"required"`
	NumGuests       int              `json:"num_guests" binding:"required,min=1"`
	TotalAmount     *decimal.Decimal `json:"total_amount" swaggertype:"string"`
	Currency        string           `json:"currency"`
	SpecialRequests *string          `json:"special_requests"`
}

// CheckInRequest 入住请求
type CheckInRequest struct {
	RoomID *int64 `json:"room_id"`
}

// CancelBookingRequest 取消预订请求
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// CreateBooking 创建预订
// @Summary 创建预订
// @Tags 预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateBookingRequest true "请求参数"
// @Success 201 {object} response.Response{data=hotelService.BookingInfo}
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actorID, ok := handler.RequireActorID(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	checkIn, err := handler.ParseDate(req.CheckInDate)
	if err != nil {
		response.BadRequest(c, "入住日期格式错误")
		return
	}
	checkOut, err := handler.ParseDate(req.CheckOutDate)
	if err != nil {
		response.BadRequest(c, "离店日期格式错误")
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), actorID, &hotelService.CreateBookingRequest{
		PropertyID:      req.PropertyID,
		RoomTypeID:      req.RoomTypeID,
		GuestID:         req.GuestID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		NumGuests:       req.NumGuests,
		TotalAmount:     req.TotalAmount,
		Currency:        req.Currency,
		SpecialRequests: req.SpecialRequests,
	})
	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, booking)
}

// GetBooking 获取预订详情
// @Summary 获取预订详情
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.BookingInfo}
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	_, bookingID, ok := handler.RequireActorAndParseID(c, "预订")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingID)
	handler.MustSucceed(c, err, booking)
}

// ListBookingAudit 获取预订审计轨迹
// @Summary 获取预订审计轨迹
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=[]models.AuditLog}
// @Router /api/v1/bookings/{id}/audit-logs [get]
func (h *BookingHandler) ListBookingAudit(c *gin.Context) {
	_, bookingID, ok := handler.RequireActorAndParseID(c, "预订")
	if !ok {
		return
	}

	logs, err := h.bookingService.ListBookingAudit(c.Request.Context(), bookingID)
	handler.MustSucceed(c, err, logs)
}

// GetBookingByNo 按预订号获取预订
// @Summary 按预订号获取预订
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param number path string true "预订号"
// @Success 200 {object} response.Response{data=hotelService.BookingInfo}
// @Failure 400 {object} response.Response "预订号格式错误"
// @Router /api/v1/bookings/by-number/{number} [get]
func (h *BookingHandler) GetBookingByNo(c *gin.Context) {
	if _, ok := handler.RequireActorID(c); !ok {
		return
	}

	booking, err := h.bookingService.GetBookingByNo(c.Request.Context(), c.Param("number"))
	handler.MustSucceed(c, err, booking)
}

// ListBookings 获取预订列表
// @Summary 获取预订列表
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param property_id query int false "门店ID"
// @Param guest_id query int false "客人ID"
// @Param status query string false "状态" Enums(PENDING, CONFIRMED, CHECKED_IN, CHECKED_OUT, CANCELLED)
// @Param from query string false "入住日期起 YYYY-MM-DD"
// @Param to query string false "入住日期止（不含） YYYY-MM-DD"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.ListData{list=[]hotelService.BookingInfo}}
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	if _, ok := handler.RequireActorID(c); !ok {
		return
	}
	propertyID, ok := handler.ParseQueryID(c, "property_id", "门店")
	if !ok {
		return
	}
	guestID, ok := handler.ParseQueryID(c, "guest_id", "客人")
	if !ok {
		return
	}
	from, ok := optionalQueryDate(c, "from")
	if !ok {
		return
	}
	to, ok := optionalQueryDate(c, "to")
	if !ok {
		return
	}
	p := handler.BindPagination(c)

	req := &hotelService.ListBookingsRequest{
		Status:   c.Query("status"),
		From:     from,
		To:       to,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	if propertyID != nil {
		req.PropertyID = *propertyID
	}
	if guestID != nil {
		req.GuestID = *guestID
	}

	bookings, total, err := h.bookingService.ListBookings(c.Request.Context(), req)
	handler.MustSucceedPage(c, err, bookings, total, p.Page, p.PageSize)
}

// ConfirmBooking 确认预订
// @Summary 确认预订
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.BookingInfo}
// @Failure 409 {object} response.Response "状态不允许或无可用房间"
// @Router /api/v1/bookings/{id}/confirm [post]
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	actorID, bookingID, ok := handler.RequireActorAndParseID(c, "预订")
	if !ok {
		return
	}

	booking, err := h.bookingService.ConfirmBooking(c.Request.Context(), actorID, bookingID)
	handler.MustSucceed(c, err, booking)
}

// CheckIn 办理入住
// @Summary 办理入住
// @Description 未指定 room_id 时自动分配房号最小的空净房
// @Tags 预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body CheckInRequest false "请求参数"
// @Success 200 {object} response.Response{data=hotelService.BookingInfo}
// @Router /api/v1/bookings/{id}/check-in [post]
func (h *BookingHandler) CheckIn(c *gin.Context) {
	actorID, bookingID, ok := handler.RequireActorAndParseID(c, "预订")
	if !ok {
		return
	}

	var req CheckInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}
	if req.RoomID != nil && *req.RoomID <= 0 {
		response.BadRequest(c, "无效的房间ID")
		return
	}

	booking, err := h.bookingService.CheckIn(c.Request.Context(), actorID, bookingID, req.RoomID)
	handler.MustSucceed(c, err, booking)
}

// CheckOut 办理退房
// @Summary 办理退房
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.CheckOutResult}
// @Router /api/v1/bookings/{id}/check-out [post]
func (h *BookingHandler) CheckOut(c *gin.Context) {
	actorID, bookingID, ok := handler.RequireActorAndParseID(c, "预订")
	if !ok {
		return
	}

	result, err := h.bookingService.CheckOut(c.Request.Context(), actorID, bookingID)
	handler.MustSucceed(c, err, result)
}

// CancelBooking 取消预订
// @Summary 取消预订
// @Tags 预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body CancelBookingRequest false "请求参数"
// @Success 200 {object} response.Response{data=hotelService.CancelResult}
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actorID, bookingID, ok := handler.RequireActorAndParseID(c, "预订")
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误")
			return
		}
	}

	result, err := h.bookingService.CancelBooking(c.Request.Context(), actorID, bookingID, req.Reason)
	handler.MustSucceed(c, err, result)
}

// SettleRefund 重新发起待处理的退款
// @Summary 重试退款
// @Description 取消时网关未受理的退款可手动重试，按同一退款单号幂等
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.BookingInfo}
// @Failure 409 {object} response.Response "没有待处理的退款"
// @Router /api/v1/bookings/{id}/refund [post]
func (h *BookingHandler) SettleRefund(c *gin.Context) {
	actorID, bookingID, ok := handler.RequireActorAndParseID(c, "预订")
	if !ok {
		return
	}

	booking, err := h.bookingService.SettleRefund(c.Request.Context(), actorID, bookingID)
	handler.MustSucceed(c, err, booking)
}

func optionalQueryDate(c *gin.Context, name string) (*time.Time, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}
	t, err := handler.ParseDate(s)
	if err != nil {
		response.BadRequest(c, "无效的日期: "+name)
		return nil, false
	}
	return &t, true
}
