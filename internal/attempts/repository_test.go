package attempts

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/techstore-checkout/pkg/db/models"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CheckoutAttempt{}))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func strPtr(v string) *string { return &v }

func newRow(shopper string, started time.Time) *models.CheckoutAttempt {
	return &models.CheckoutAttempt{
		ID:           uuid.New(),
		ShopperID:    shopper,
		Status:       "submitting_order",
		DerivedTotal: decimal.RequireFromString("66.00"),
		ShippingInfo: types.ShippingInfo{Street: "1 Main", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US", PhoneNumber: "555"},
		StartedAt:    started.UTC(),
	}
}

func TestSaveInsertsThenUpdates(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	row := newRow("shopper-1", time.Now())

	require.NoError(t, repo.Save(ctx, row))

	update := *row
	update.Status = "failed"
	update.FailedPhase = strPtr("intent_creation")
	update.OrderID = strPtr("42")
	update.OrphanedUnpaidOrder = true
	done := time.Now().UTC()
	update.CompletedAt = &done
	require.NoError(t, repo.Save(ctx, &update))

	got, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, "failed", got.Status)
	require.Equal(t, "intent_creation", *got.FailedPhase)
	require.Equal(t, "42", *got.OrderID)
	require.True(t, got.OrphanedUnpaidOrder)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, "Springfield", got.ShippingInfo.City)
	require.True(t, got.DerivedTotal.Equal(decimal.RequireFromString("66")))
}

func TestSaveRequiresRow(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	require.Error(t, repo.Save(context.Background(), nil))
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	_, err := repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByShopperPaginates(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, newRow("shopper-1", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Save(ctx, newRow("shopper-2", base)))

	first, cursor, err := repo.ListByShopper(ctx, ListParams{ShopperID: "shopper-1", Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, cursor)
	require.True(t, first[0].StartedAt.After(first[2].StartedAt))

	second, next, err := repo.ListByShopper(ctx, ListParams{ShopperID: "shopper-1", Limit: 3, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Nil(t, next)

	seen := map[uuid.UUID]bool{}
	for _, row := range append(first, second...) {
		require.Equal(t, "shopper-1", row.ShopperID)
		require.False(t, seen[row.ID])
		seen[row.ID] = true
	}
}

func TestListOrphaned(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	orphan := newRow("shopper-1", time.Now())
	orphan.Status = "failed"
	orphan.OrderID = strPtr("42")
	orphan.OrphanedUnpaidOrder = true
	require.NoError(t, repo.Save(ctx, orphan))
	require.NoError(t, repo.Save(ctx, newRow("shopper-1", time.Now())))

	other := newRow("shopper-2", time.Now())
	other.OrphanedUnpaidOrder = true
	require.NoError(t, repo.Save(ctx, other))

	rows, err := repo.ListOrphaned(ctx, "shopper-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, orphan.ID, rows[0].ID)
}
