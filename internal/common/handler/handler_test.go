package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/logger"
	"github.com/dumeirei/hotel-inventory/internal/common/response"
	"github.com/dumeirei/hotel-inventory/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// createTestContext 创建测试上下文
func createTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ==================== 错误处理测试 ====================

func TestHandleError_Nil(t *testing.T) {
	c, w := createTestContext("/")
	assert.False(t, HandleError(c, nil))
	assert.Equal(t, 0, w.Body.Len())
}

func TestHandleError_AppErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"参数错误", errors.ErrInvalidDateRange, http.StatusBadRequest, errors.ErrInvalidDateRange.Code},
		{"预订不存在", errors.ErrBookingNotFound, http.StatusNotFound, errors.ErrBookingNotFound.Code},
		{"非法状态转换", errors.IllegalTransition("CHECKED_OUT", "cancel"), http.StatusConflict, errors.ErrIllegalTransition.Code},
		{"无可用房间", errors.ErrNoRoomAvailable, http.StatusConflict, errors.ErrNoRoomAvailable.Code},
		{"包装后的错误", stderrors.Join(errors.ErrBookingConflict), http.StatusConflict, errors.ErrBookingConflict.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := createTestContext("/")
			assert.True(t, HandleError(c, tt.err))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, parseResponse(t, w).Code)
		})
	}
}

func TestHandleError_PlainErrorIsOpaqueAndLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	c, w := createTestContext("/")
	assert.True(t, HandleError(c, stderrors.New("dial tcp 10.0.0.3:5432: connection refused")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
	assert.Equal(t, errors.ErrInternalError.Message, parseResponse(t, w).Message)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "connection refused")
}

func TestHandleError_UsesRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	c, _ := createTestContext("/")
	c.Set(middleware.ContextKeyRequestLogger, zap.New(core).With(logger.RequestID("req-7")))

	assert.True(t, HandleError(c, stderrors.New("disk full")))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-7", logs.All()[0].ContextMap()["request_id"])
}

func TestMustSucceed(t *testing.T) {
	c, w := createTestContext("/")
	MustSucceed(c, nil, gin.H{"ok": true})
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = createTestContext("/")
	MustSucceed(c, errors.ErrPropertyNotFound, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ==================== 身份检查测试 ====================

func TestRequireActorID(t *testing.T) {
	c, w := createTestContext("/")
	_, ok := RequireActorID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, _ = createTestContext("/")
	c.Set(middleware.ContextKeyActorID, int64(12))
	id, ok := RequireActorID(c)
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}

// ==================== 参数解析测试 ====================

func TestParseID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int64
		ok    bool
	}{
		{"正常", "15", 15, true},
		{"非数字", "abc", 0, false},
		{"零", "0", 0, false},
		{"负数", "-3", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := createTestContext("/")
			c.Params = gin.Params{{Key: "id", Value: tt.value}}
			id, ok := ParseID(c, "预订")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, parseResponse(t, w).Message, "预订")
			}
		})
	}
}

func TestParseQueryID(t *testing.T) {
	c, _ := createTestContext("/")
	id, ok := ParseQueryID(c, "room_id", "房间")
	assert.True(t, ok)
	assert.Nil(t, id)

	c, _ = createTestContext("/?room_id=7")
	id, ok = ParseQueryID(c, "room_id", "房间")
	require.True(t, ok)
	assert.Equal(t, int64(7), *id)

	c, w := createTestContext("/?room_id=x")
	_, ok = ParseQueryID(c, "room_id", "房间")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = createTestContext("/")
	_, ok = ParseRequiredQueryID(c, "property_id", "门店")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseRequiredQueryDate(t *testing.T) {
	c, _ := createTestContext("/?check_in=2024-03-01")
	d, ok := ParseRequiredQueryDate(c, "check_in", "入住日期")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)

	c, w := createTestContext("/?check_in=03/01/2024")
	_, ok = ParseRequiredQueryDate(c, "check_in", "入住日期")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = createTestContext("/")
	_, ok = ParseRequiredQueryDate(c, "check_in", "入住日期")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBindPagination(t *testing.T) {
	c, _ := createTestContext("/?page=2&page_size=500")
	p := BindPagination(c)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 100, p.PageSize)

	c, _ = createTestContext("/")
	p = BindPagination(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}
