package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dumeirei/hotel-inventory/internal/common/logger"
)

// Publisher 事件发布通道
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *Event) error
}

// mqttClient pkg/mqtt.Client 的发布能力
type mqttClient interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// MQTTPublisher 按 {prefix}{property}/booking/{event} 发布到 MQTT
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
}

// NewMQTTPublisher 创建 MQTT 发布者
func NewMQTTPublisher(client mqttClient, topicPrefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topicPrefix: topicPrefix}
}

// Name 通道名
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Topic 事件主题
func (p *MQTTPublisher) Topic(event *Event) string {
	return fmt.Sprintf("%s%d/booking/%s", p.topicPrefix, event.PropertyID, event.Type)
}

// Publish 发布事件
func (p *MQTTPublisher) Publish(ctx context.Context, event *Event) error {
	return p.client.Publish(ctx, p.Topic(event), event)
}

// amqpClient pkg/amqp.Client 的发布能力
type amqpClient interface {
	RoutingKey(event string) string
	Publish(ctx context.Context, routingKey string, payload interface{}, headers map[string]interface{}) error
}

// AMQPPublisher 发布到 RabbitMQ topic 交换机
type AMQPPublisher struct {
	client amqpClient
}

// NewAMQPPublisher 创建 AMQP 发布者
func NewAMQPPublisher(client amqpClient) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

// Name 通道名
func (p *AMQPPublisher) Name() string { return "amqp" }

// Publish 发布事件
func (p *AMQPPublisher) Publish(ctx context.Context, event *Event) error {
	headers := map[string]interface{}{
		"event_id":    event.ID,
		"property_id": event.PropertyID,
	}
	return p.client.Publish(ctx, p.client.RoutingKey(event.Type), event, headers)
}

// LogPublisher 只写日志，用于未配置消息中间件的环境
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher 创建日志发布者
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &LogPublisher{log: log}
}

// Name 通道名
func (p *LogPublisher) Name() string { return "log" }

// Publish 记录事件
func (p *LogPublisher) Publish(_ context.Context, event *Event) error {
	fields := []zap.Field{
		logger.Event(event.Type),
		logger.PropertyID(event.PropertyID),
		zap.String("event_id", event.ID),
	}
	if event.BookingID > 0 {
		fields = append(fields, logger.BookingID(event.BookingID), logger.BookingNo(event.BookingNo))
	}
	if event.RoomID != nil {
		fields = append(fields, logger.RoomID(*event.RoomID))
	}
	p.log.Info("domain event", fields...)
	return nil
}
