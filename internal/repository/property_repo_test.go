package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-inventory/internal/models"
)

// ==================== 门店测试 ====================

func TestPropertyRepository_List(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewPropertyRepository(db)
	ctx := context.Background()

	closed := &models.Property{Name: "停业店", Address: "a", City: "厦门", Country: "CN", IsActive: true}
	require.NoError(t, db.WithContext(ctx).Create(closed).Error)
	require.NoError(t, db.Model(closed).Update("is_active", false).Error)

	removed := &models.Property{Name: "已删除", Address: "b", City: "福州", Country: "CN", IsActive: true}
	removed.SoftDelete(testNow)
	require.NoError(t, db.WithContext(ctx).Create(removed).Error)

	list, total, err := repo.List(ctx, 0, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, f.property.ID, list[0].ID)

	_, total, err = repo.List(ctx, 0, 10, "福州")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPropertyRepository_GetWithRoomTypes(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewPropertyRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Model(f.suite).Update("is_deleted", true).Error)

	property, err := repo.GetWithRoomTypes(ctx, f.property.ID)
	require.NoError(t, err)
	require.Len(t, property.RoomTypes, 1)
	assert.Equal(t, "Standard", property.RoomTypes[0].Name)
	assert.True(t, property.RoomTypes[0].BasePrice.Equal(decimal.RequireFromString("100")))
}

// ==================== 房型测试 ====================

func TestRoomTypeRepository(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewRoomTypeRepository(db)
	ctx := context.Background()

	types, err := repo.ListByProperty(ctx, f.property.ID, 3)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Suite", types[0].Name)

	types, err = repo.ListByProperty(ctx, f.property.ID, 1)
	require.NoError(t, err)
	assert.Len(t, types, 2)

	// sqlite 忽略行锁子句，这里只验证查询可用
	locked, err := repo.GetForUpdate(ctx, f.standard.ID)
	require.NoError(t, err)
	assert.Equal(t, f.standard.ID, locked.ID)
}
