package attempts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/techstore-checkout/internal/repo"
	dbpkg "github.com/angelmondragon/techstore-checkout/pkg/db"
	"github.com/angelmondragon/techstore-checkout/pkg/db/models"
	"github.com/angelmondragon/techstore-checkout/pkg/pagination"
)

// Repository persists the checkout attempt ledger.
type Repository interface {
	Save(ctx context.Context, attempt *models.CheckoutAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutAttempt, error)
	ListByShopper(ctx context.Context, params ListParams) ([]models.CheckoutAttempt, *pagination.Cursor, error)
	ListOrphaned(ctx context.Context, shopperID string) ([]models.CheckoutAttempt, error)
}

// ListParams selects one page of a shopper's attempts, newest first.
type ListParams struct {
	ShopperID string
	Limit     int
	Cursor    *pagination.Cursor
}

// ErrNotFound is returned when an attempt id has no row.
var ErrNotFound = errors.New("checkout attempt not found")

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

// Save inserts the row, or overwrites the mutable columns when the attempt
// already has one.
func (r *repositoryImpl) Save(ctx context.Context, attempt *models.CheckoutAttempt) error {
	if attempt == nil {
		return errors.New("attempt required")
	}
	err := r.DB(ctx).Create(attempt).Error
	if err == nil || !dbpkg.IsUniqueViolation(err, "") {
		return err
	}
	return r.DB(ctx).
		Model(&models.CheckoutAttempt{ID: attempt.ID}).
		Select("*").
		Omit("id", "shopper_id", "started_at", "created_at").
		Updates(attempt).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutAttempt, error) {
	var row models.CheckoutAttempt
	err := r.DB(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) ListByShopper(ctx context.Context, params ListParams) ([]models.CheckoutAttempt, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.Scoped(ctx, &models.CheckoutAttempt{}).Where("shopper_id = ?", params.ShopperID)
	if params.Cursor != nil {
		query = query.Where("(started_at < ?) OR (started_at = ? AND id < ?)", params.Cursor.At, params.Cursor.At, params.Cursor.ID)
	}

	var rows []models.CheckoutAttempt
	if err := query.Order("started_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		last := rows[normalized-1]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{At: last.StartedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// ListOrphaned returns failed attempts that left an unpaid order behind.
func (r *repositoryImpl) ListOrphaned(ctx context.Context, shopperID string) ([]models.CheckoutAttempt, error) {
	var rows []models.CheckoutAttempt
	err := r.DB(ctx).
		Where("shopper_id = ? AND orphaned_unpaid_order = ?", shopperID, true).
		Order("started_at DESC").
		Find(&rows).Error
	return rows, err
}
