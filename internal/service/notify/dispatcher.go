package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/metrics"
)

// 投递结果
const (
	ResultPublished = "published"
	ResultDropped   = "dropped"
	ResultFailed    = "failed"
)

const defaultPublishTimeout = 5 * time.Second

// Dispatcher 有界队列加固定工作协程的事件分发器
// Enqueue 从不阻塞，队列满时丢弃事件
type Dispatcher struct {
	publisher Publisher
	queue     chan *Event
	workers   int
	timeout   time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherConfig 分发器配置
type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	PublishTimeout time.Duration
}

// NewDispatcher 创建分发器并启动工作协程
func NewDispatcher(publisher Publisher, cfg DispatcherConfig, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if log == nil {
		log = logger.GetLogger()
	}

	d := &Dispatcher{
		publisher: publisher,
		queue:     make(chan *Event, cfg.QueueSize),
		workers:   cfg.Workers,
		timeout:   cfg.PublishTimeout,
		log:       log.With(logger.Module("notify"), zap.String("transport", publisher.Name())),
		metrics:   m,
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Enqueue 入队事件，返回实际入队数量
func (d *Dispatcher) Enqueue(events ...*Event) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	accepted := 0
	for _, event := range events {
		if event == nil {
			continue
		}
		if d.closed {
			d.drop(event, "dispatcher closed")
			continue
		}
		select {
		case d.queue <- event:
			accepted++
		default:
			d.drop(event, "queue full")
		}
	}
	return accepted
}

func (d *Dispatcher) drop(event *Event, reason string) {
	d.log.Warn("domain event dropped",
		logger.Event(event.Type),
		logger.BookingID(event.BookingID),
		zap.String("reason", reason),
	)
	d.record(event.Type, ResultDropped)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.publish(event)
	}
}

func (d *Dispatcher) publish(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.log.Error("publish domain event failed",
			logger.Event(event.Type),
			logger.BookingID(event.BookingID),
			logger.Err(err),
		)
		d.record(event.Type, ResultFailed)
		return
	}
	d.record(event.Type, ResultPublished)
}

func (d *Dispatcher) record(eventType, result string) {
	if d.metrics != nil {
		d.metrics.RecordNotification(eventType, result)
	}
}

// Close 停止接收新事件并等待队列排空，ctx 到期时放弃等待
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
