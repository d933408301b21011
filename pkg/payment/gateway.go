// Package payment 提供退款网关封装
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 退款状态
const (
	RefundStatusSuccess    = "SUCCESS"
	RefundStatusProcessing = "PROCESSING"
	RefundStatusClosed     = "CLOSED"
)

// ErrInvalidRefund 退款请求不合法
var ErrInvalidRefund = errors.New("payment: invalid refund request")

// Config 网关配置
type Config struct {
	Provider string // mock
	MchID    string
	APIKey   string
	Timeout  time.Duration
}

// RefundRequest 退款请求
type RefundRequest struct {
	OutRefundNo string          // 商户退款单号，同一单号重复提交返回首次结果
	BookingNo   string
	Total       decimal.Decimal
	Refund      decimal.Decimal
	Currency    string
	Reason      string
}

// RefundResult 退款结果
type RefundResult struct {
	RefundID    string
	OutRefundNo string
	Amount      decimal.Decimal
	Status      string
	CreatedAt   time.Time
}

// RefundGateway 退款网关
type RefundGateway interface {
	Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error)
}

// New 按配置创建退款网关
func New(config *Config, log *zap.Logger) (RefundGateway, error) {
	switch config.Provider {
	case "", "mock":
		return NewMockGateway(config, log), nil
	default:
		return nil, fmt.Errorf("payment: unsupported provider %q", config.Provider)
	}
}

// MockGateway 本地模拟网关，退款立即成功并按退款单号幂等
type MockGateway struct {
	config  *Config
	log     *zap.Logger
	mu      sync.Mutex
	refunds map[string]*RefundResult
	now     func() time.Time
}

// NewMockGateway 创建模拟网关
func NewMockGateway(config *Config, log *zap.Logger) *MockGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &MockGateway{
		config:  config,
		log:     log.Named("payment"),
		refunds: make(map[string]*RefundResult),
		now:     time.Now,
	}
}

// Refund 申请退款
func (g *MockGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.OutRefundNo == "" || !req.Refund.IsPositive() || req.Refund.GreaterThan(req.Total) {
		return nil, fmt.Errorf("%w: out_refund_no=%s refund=%s total=%s",
			ErrInvalidRefund, req.OutRefundNo, req.Refund, req.Total)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.refunds[req.OutRefundNo]; ok {
		return prev, nil
	}

	result := &RefundResult{
		RefundID:    "rf_" + uuid.NewString(),
		OutRefundNo: req.OutRefundNo,
		Amount:      req.Refund,
		Status:      RefundStatusSuccess,
		CreatedAt:   g.now().UTC(),
	}
	g.refunds[req.OutRefundNo] = result

	g.log.Info("refund accepted",
		zap.String("out_refund_no", req.OutRefundNo),
		zap.String("booking_number", req.BookingNo),
		zap.String("amount", req.Refund.StringFixed(2)),
		zap.String("currency", req.Currency),
	)
	return result, nil
}

// Refunds 已受理的退款数量
func (g *MockGateway) Refunds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}
