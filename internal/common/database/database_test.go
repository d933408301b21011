// Package database 数据库模块单元测试
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-inventory/internal/common/config"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open(&config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})
	return conn
}

// ==================== Open 测试 ====================

func TestOpen_SQLite(t *testing.T) {
	conn := openSQLite(t)
	assert.NoError(t, Ping(context.Background(), conn))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestPing_NilDB(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, logger.Warn, getLogLevel(true))
	assert.Equal(t, logger.Silent, getLogLevel(false))
}

// ==================== TxOptions 测试 ====================

func TestTxOptions(t *testing.T) {
	assert.Nil(t, TxOptions(nil))
	assert.Nil(t, TxOptions(&config.DatabaseConfig{}))

	opts := TxOptions(&config.DatabaseConfig{Isolation: "serializable"})
	require.NotNil(t, opts)
	assert.Equal(t, sql.LevelSerializable, opts.Isolation)
}

// ==================== 冲突判定测试 ====================

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"record not found", gorm.ErrRecordNotFound, false},
		{"stale write", fmt.Errorf("update room: %w", ErrStaleWrite), true},
		{"duplicated key", gorm.ErrDuplicatedKey, true},
		{"pg serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"pg check violation", &pgconn.PgError{Code: "23514"}, false},
		{"mysql deadlock", &gomysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait timeout", &gomysql.MySQLError{Number: 1205}, true},
		{"mysql syntax", &gomysql.MySQLError{Number: 1064}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"sqlite misuse", sqlite3.Error{Code: sqlite3.ErrMisuse}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsDuplicateKey_SQLiteUniqueIndex(t *testing.T) {
	conn := openSQLite(t)

	type Ticket struct {
		ID   int64
		Code string `gorm:"uniqueIndex"`
	}
	require.NoError(t, conn.AutoMigrate(&Ticket{}))
	require.NoError(t, conn.Create(&Ticket{Code: "BK1"}).Error)

	err := conn.Create(&Ticket{Code: "BK1"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
	assert.True(t, IsRetryable(err))
}

// ==================== 作用域测试 ====================

func TestNotDeleted(t *testing.T) {
	conn := openSQLite(t)

	type Row struct {
		ID        int64
		IsDeleted bool
	}
	require.NoError(t, conn.AutoMigrate(&Row{}))
	conn.Create(&Row{ID: 1})
	conn.Create(&Row{ID: 2, IsDeleted: true})

	var rows []Row
	conn.Scopes(NotDeleted).Find(&rows)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
}

// ==================== GetDB / Close 测试 ====================

func TestClose_WithNilDB(t *testing.T) {
	old := db
	db = nil
	t.Cleanup(func() { db = old })

	assert.NoError(t, Close())
	assert.Nil(t, GetDB())
}
