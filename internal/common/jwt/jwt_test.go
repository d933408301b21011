// Package jwt 令牌签发与解析单元测试
package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestManager 创建测试用的 JWT Manager
func setupTestManager() *Manager {
	return NewManager(&Config{
		Secret:     "test-secret-key-for-jwt-token-signing",
		ExpireTime: time.Hour,
		Issuer:     "hotel-test",
	})
}

// ==================== GenerateToken 测试 ====================

func TestManager_GenerateAndParse(t *testing.T) {
	manager := setupTestManager()

	tests := []struct {
		name       string
		actorID    int64
		role       string
		propertyID int64
	}{
		{"前台", 7, RoleFrontDesk, 1},
		{"客房", 8, RoleHousekeeping, 1},
		{"经理不限门店", 9, RoleManager, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expiresAt, err := manager.GenerateToken(tt.actorID, tt.role, tt.propertyID)
			require.NoError(t, err)
			assert.Equal(t, 3, len(strings.Split(token, ".")))
			assert.Greater(t, expiresAt, time.Now().Unix())

			claims, err := manager.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.actorID, claims.ActorID)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, tt.propertyID, claims.PropertyID)
			assert.Equal(t, "hotel-test", claims.Issuer)
		})
	}
}

// ==================== ParseToken 测试 ====================

func TestManager_ParseToken_Expired(t *testing.T) {
	manager := setupTestManager()
	token, _, err := manager.GenerateToken(1, RoleFrontDesk, 0)
	require.NoError(t, err)

	manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = manager.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestManager_ParseToken_WrongSecret(t *testing.T) {
	token, _, err := setupTestManager().GenerateToken(1, RoleFrontDesk, 0)
	require.NoError(t, err)

	other := NewManager(&Config{Secret: "another-secret", ExpireTime: time.Hour})
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestManager_ParseToken_Malformed(t *testing.T) {
	_, err := setupTestManager().ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestManager_ParseToken_MissingActor(t *testing.T) {
	manager := setupTestManager()
	token, _, err := manager.GenerateToken(0, RoleFrontDesk, 0)
	require.NoError(t, err)

	_, err = manager.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleFrontDesk))
	assert.True(t, ValidRole(RoleManager))
	assert.False(t, ValidRole("admin"))
	assert.False(t, ValidRole(""))
}
