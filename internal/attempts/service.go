package attempts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/techstore-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/pagination"
)

// AttemptDTO is the shopper-facing view of a ledger row.
type AttemptDTO struct {
	ID                  string     `json:"id"`
	Status              string     `json:"status"`
	FailedPhase         string     `json:"failedPhase,omitempty"`
	ErrorCode           string     `json:"errorCode,omitempty"`
	ErrorMessage        string     `json:"errorMessage,omitempty"`
	OrderID             string     `json:"orderId,omitempty"`
	OrderNumber         string     `json:"orderNumber,omitempty"`
	Total               string     `json:"total"`
	OrphanedUnpaidOrder bool       `json:"orphanedUnpaidOrder"`
	StartedAt           time.Time  `json:"startedAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
}

// Page is one page of attempt history.
type Page struct {
	Attempts   []AttemptDTO `json:"attempts"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// Service reads the ledger on behalf of a shopper.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("attempts repository required")
	}
	return &Service{repo: repo}, nil
}

// History lists the shopper's attempts, newest first.
func (s *Service) History(ctx context.Context, shopperID string, limit int, cursor string) (Page, error) {
	if strings.TrimSpace(shopperID) == "" {
		return Page{}, pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required")
	}
	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeInvalidRequest, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByShopper(ctx, ListParams{ShopperID: shopperID, Limit: limit, Cursor: parsed})
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing checkout attempts")
	}
	page := Page{Attempts: toDTOs(rows)}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// Orphaned lists failed attempts that left an unpaid order for the shopper.
func (s *Service) Orphaned(ctx context.Context, shopperID string) ([]AttemptDTO, error) {
	if strings.TrimSpace(shopperID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required")
	}
	rows, err := s.repo.ListOrphaned(ctx, shopperID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orphaned orders")
	}
	return toDTOs(rows), nil
}

// Get returns one attempt owned by the shopper.
func (s *Service) Get(ctx context.Context, shopperID, attemptID string) (AttemptDTO, error) {
	id, err := uuid.Parse(strings.TrimSpace(attemptID))
	if err != nil {
		return AttemptDTO{}, pkgerrors.Wrap(pkgerrors.CodeInvalidRequest, err, "invalid attempt id")
	}
	row, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return AttemptDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}
	if err != nil {
		return AttemptDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading checkout attempt")
	}
	if row.ShopperID != shopperID {
		return AttemptDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}
	return toDTO(*row), nil
}

func toDTOs(rows []models.CheckoutAttempt) []AttemptDTO {
	out := make([]AttemptDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out
}

func toDTO(row models.CheckoutAttempt) AttemptDTO {
	return AttemptDTO{
		ID:                  row.ID.String(),
		Status:              row.Status,
		FailedPhase:         deref(row.FailedPhase),
		ErrorCode:           deref(row.ErrorCode),
		ErrorMessage:        deref(row.ErrorMessage),
		OrderID:             deref(row.OrderID),
		OrderNumber:         deref(row.OrderNumber),
		Total:               row.DerivedTotal.StringFixed(2),
		OrphanedUnpaidOrder: row.OrphanedUnpaidOrder,
		StartedAt:           row.StartedAt,
		CompletedAt:         row.CompletedAt,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
