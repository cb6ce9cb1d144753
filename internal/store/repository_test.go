package store

import (
	"context"
	"path/filepath"
	"testing"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Truck{}))
	return db
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[domain.Truck](newTestDB(t), "Truck")

	truck := &domain.Truck{PlateNumber: "KA-01", Capacity: 40}
	require.NoError(t, repo.Create(ctx, truck))
	require.NotZero(t, truck.ID)
	assert.Equal(t, domain.TruckAvailable, truck.Status)

	err := repo.Create(ctx, &domain.Truck{PlateNumber: "KA-01", Capacity: 10})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	err = repo.Create(ctx, &domain.Truck{PlateNumber: "", Capacity: 10})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	require.NoError(t, repo.Update(ctx, truck.ID, &domain.Truck{PlateNumber: "KA-01", Capacity: 55, Status: domain.TruckMaintenance}))
	got, err := repo.Get(ctx, truck.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, got.Capacity)
	assert.Equal(t, domain.TruckMaintenance, got.Status)

	page, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.TotalPages)

	require.NoError(t, repo.Delete(ctx, truck.ID))
	_, err = repo.Get(ctx, truck.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(repo.Delete(ctx, truck.ID), apperr.KindNotFound))
}

func TestNormalize(t *testing.T) {
	page, size, offset := Normalize(0, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
	assert.Equal(t, 0, offset)

	page, size, offset = Normalize(3, 10)
	assert.Equal(t, []int{3, 10, 20}, []int{page, size, offset})
}
