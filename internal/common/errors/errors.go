// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind 错误类别，决定调用方的处理方式
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindIllegalTransition Kind = "illegal_transition"
	KindNoRoomAvailable   Kind = "no_room_available"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// AppError 应用错误
type AppError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Kind    Kind              `json:"-"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is(err, ErrBookingNotFound) 对派生错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的应用错误（类别为 internal）
func New(code int, message string) *AppError {
	return NewKind(KindInternal, code, message)
}

// NewKind 创建指定类别的应用错误
func NewKind(kind Kind, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    KindInternal,
		Err:     err,
	}
}

func (e *AppError) clone() *AppError {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	c := e.clone()
	c.Message = message
	return c
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	c := e.clone()
	c.Err = err
	return c
}

// WithDetail 附加结构化的错误详情
func (e *AppError) WithDetail(key, value string) *AppError {
	c := e.clone()
	if c.Details == nil {
		c.Details = make(map[string]string, 1)
	}
	c.Details[key] = value
	return c
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = NewKind(KindValidation, 1001, "参数错误")
	ErrNotFound        = NewKind(KindNotFound, 1002, "资源不存在")
	ErrAlreadyExists   = NewKind(KindConflict, 1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrConflict        = NewKind(KindConflict, 1008, "并发冲突，请重试")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = NewKind(KindUnauthorized, 2000, "未登录")
	ErrTokenExpired     = NewKind(KindUnauthorized, 2001, "登录已过期")
	ErrTokenInvalid     = NewKind(KindUnauthorized, 2002, "无效的令牌")
	ErrPermissionDenied = NewKind(KindForbidden, 2004, "权限不足")
)

// 支付错误码 (6000-6999)
var (
	ErrRefundFailed       = New(6004, "退款失败")
	ErrRefundAmountExceed = NewKind(KindValidation, 6005, "退款金额超限")
	ErrRefundNotPending   = NewKind(KindIllegalTransition, 6006, "预订没有待处理的退款")
)

// 预订错误码 (8000-8999)
var (
	ErrBookingNotFound     = NewKind(KindNotFound, 8000, "预订不存在")
	ErrIllegalTransition   = NewKind(KindIllegalTransition, 8001, "预订状态不允许该操作")
	ErrBookingConflict     = NewKind(KindConflict, 8002, "预订并发冲突，请重试")
	ErrNoRoomAvailable     = NewKind(KindNoRoomAvailable, 8004, "无可用房间")
	ErrInvalidDateRange    = NewKind(KindValidation, 8005, "离店日期必须晚于入住日期")
	ErrCheckInInPast       = NewKind(KindValidation, 8006, "入住日期不能早于今天")
	ErrGuestCountExceeded  = NewKind(KindValidation, 8007, "入住人数超过房型最大容纳人数")
	ErrRoomNotFound        = NewKind(KindNotFound, 8008, "房间不存在")
	ErrRoomTypeNotFound    = NewKind(KindNotFound, 8009, "房型不存在")
	ErrPropertyNotFound    = NewKind(KindNotFound, 8010, "酒店不存在")
	ErrRoomNotReady        = NewKind(KindNoRoomAvailable, 8011, "房间未就绪")
	ErrTaskNotFound        = NewKind(KindNotFound, 8012, "清洁任务不存在")
	ErrTaskStatusError     = NewKind(KindIllegalTransition, 8013, "清洁任务状态不允许该操作")
	ErrInvalidCurrency     = NewKind(KindValidation, 8014, "无效的币种")
	ErrInvalidAmount       = NewKind(KindValidation, 8015, "无效的金额")
	ErrBookingNoGeneration = New(8016, "预订号生成失败")
	ErrInvalidBookingNo    = NewKind(KindValidation, 8017, "无效的预订号")
)

// IllegalTransition 构造状态机拒绝错误，携带当前状态和尝试的事件
func IllegalTransition(state, event string) *AppError {
	return ErrIllegalTransition.
		WithMessage(fmt.Sprintf("预订状态 %s 不允许执行 %s", state, event)).
		WithDetail("state", state).
		WithDetail("event", event)
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// KindOf 返回错误类别，非应用错误一律视为 internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
