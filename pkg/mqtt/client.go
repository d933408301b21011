// Package mqtt 提供 MQTT 发布客户端封装
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config MQTT 配置
type Config struct {
	Broker         string // 形如 tcp://host:1883
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	Retained       bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

// conn 客户端依赖的 paho 能力子集
type conn interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Client MQTT 客户端
type Client struct {
	config *Config
	conn   conn
	log    *zap.Logger
}

// NewClient 创建 MQTT 客户端
func NewClient(config *Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{config: config, log: log.Named("mqtt")}

	opts := paho.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(config.KeepAlive)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetAutoReconnect(config.AutoReconnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		c.log.Info("MQTT connected", zap.String("broker", config.Broker))
	})
	c.conn = paho.NewClient(opts)
	return c
}

// Connect 连接 Broker
func (c *Client) Connect() error {
	token := c.conn.Connect()
	if !token.WaitTimeout(c.connectTimeout()) {
		return fmt.Errorf("mqtt connect timeout: %s", c.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect error: %w", err)
	}
	return nil
}

func (c *Client) connectTimeout() time.Duration {
	if c.config.ConnectTimeout > 0 {
		return c.config.ConnectTimeout
	}
	return 10 * time.Second
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	if c.conn != nil && c.conn.IsConnected() {
		c.conn.Disconnect(250)
		c.log.Info("MQTT disconnected")
	}
}

// IsConnected 检查是否已连接
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Publish 发布消息，payload 非字节或字符串时按 JSON 编码
func (c *Client) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return err
	}

	token := c.conn.Publish(topic, c.config.QoS, c.config.Retained, data)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish error: %w", err)
		}
		return nil
	}
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("mqtt marshal payload error: %w", err)
		}
		return data, nil
	}
}
