// Package logger 日志模块单元测试
package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dumeirei/hotel-inventory/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ==================== Init 函数测试 ====================

func TestInit_Formats(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			err := Init(&config.LoggerConfig{Level: "info", Format: format, Output: "stdout"})
			assert.NoError(t, err)
			assert.NotNil(t, current.Load())
		})
	}
}

func TestInit_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	err := Init(&config.LoggerConfig{
		Level:      "debug",
		Format:     "json",
		Output:     "file",
		FilePath:   logFile,
		MaxSize:    1,
		MaxBackups: 3,
		MaxAge:     7,
		Caller:     true,
	})
	require.NoError(t, err)

	Info("booking confirmed", BookingNo("BK20240301ABC123"))
	_ = Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BK20240301ABC123")
	assert.Contains(t, string(data), `"booking_no"`)
}

// ==================== getLogLevel 测试 ====================

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, getLogLevel(tt.level))
		})
	}
}

// ==================== customTimeEncoder 测试 ====================

func TestCustomTimeEncoder_UTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	testTime := time.Date(2026, 1, 11, 15, 30, 45, 123000000, loc)

	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, enc.AddArray("t", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		customTimeEncoder(testTime, ae)
		return nil
	})))

	assert.Equal(t, []interface{}{"2026-01-11T07:30:45.123Z"}, enc.Fields["t"])
}

// ==================== SetLogger / GetLogger 测试 ====================

func TestSetLogger_Observer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Warn("transaction retry", BookingID(7), Attempt(2), Event("confirm"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "transaction retry", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, int64(7), fields["booking_id"])
	assert.Equal(t, int64(2), fields["attempt"])
	assert.Equal(t, "confirm", fields["event"])
}

func TestGetLogger_LazyInit(t *testing.T) {
	current.Store(nil)

	l1 := GetLogger()
	l2 := GetLogger()
	assert.NotNil(t, l1)
	assert.Same(t, l1, l2)
}

func TestSync_WithNilLogger(t *testing.T) {
	current.Store(nil)
	assert.NoError(t, Sync())
}

// ==================== 字段构造测试 ====================

func TestDomainFields(t *testing.T) {
	tests := []struct {
		field zap.Field
		key   string
	}{
		{ActorID(1), "actor_id"},
		{PropertyID(1), "property_id"},
		{RoomTypeID(1), "room_type_id"},
		{RoomID(1), "room_id"},
		{BookingID(1), "booking_id"},
		{BookingNo("BK"), "booking_no"},
		{Event("check_in"), "event"},
		{Module("booking"), "module"},
		{Action("create"), "action"},
		{RequestID("r"), "request_id"},
		{Latency(time.Second), "latency"},
		{StatusCode(200), "status_code"},
		{Method("GET"), "method"},
		{Path("/"), "path"},
		{IP("127.0.0.1"), "ip"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
		})
	}
}
