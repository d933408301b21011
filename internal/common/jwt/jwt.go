// Package jwt 提供操作员身份令牌的签发与解析
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 操作员角色
const (
	RoleFrontDesk    = "front_desk"
	RoleHousekeeping = "housekeeping"
	RoleManager      = "manager"
)

// Claims 操作员令牌声明
type Claims struct {
	ActorID    int64  `json:"actor_id"`
	Role       string `json:"role"`
	PropertyID int64  `json:"property_id,omitempty"` // 0 表示不限门店
	jwt.RegisteredClaims
}

// Config JWT 配置
type Config struct {
	Secret     string
	ExpireTime time.Duration
	Issuer     string
}

// Manager JWT 管理器
type Manager struct {
	config *Config
	now    func() time.Time
}

// 预定义错误
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenNotActive = errors.New("token not active yet")
)

// NewManager 创建 JWT 管理器
func NewManager(config *Config) *Manager {
	return &Manager{config: config, now: time.Now}
}

// GenerateToken 签发访问令牌，返回令牌和过期时间戳
func (m *Manager) GenerateToken(actorID int64, role string, propertyID int64) (string, int64, error) {
	now := m.now()
	expireAt := now.Add(m.config.ExpireTime)
	claims := &Claims{
		ActorID:    actorID,
		Role:       role,
		PropertyID: propertyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   role,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", 0, err
	}
	return signed, expireAt.Unix(), nil
}

// ParseToken 解析令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotActive
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.ActorID <= 0 {
			return nil, ErrTokenInvalid
		}
		return claims, nil
	}

	return nil, ErrTokenInvalid
}

// ValidRole 判断角色是否受支持
func ValidRole(role string) bool {
	switch role {
	case RoleFrontDesk, RoleHousekeeping, RoleManager:
		return true
	}
	return false
}
