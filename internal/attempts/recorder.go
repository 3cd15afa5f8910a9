package attempts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

const writeTimeout = 3 * time.Second

// Recorder writes every checkout transition to the attempt ledger.
type Recorder struct {
	repo Repository
	logg *logger.Logger
}

// NewRecorder returns a checkout observer backed by repo.
func NewRecorder(repo Repository, logg *logger.Logger) *Recorder {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Recorder{repo: repo, logg: logg}
}

// ObserveCheckout upserts the attempt row. Ledger failures are logged and
// never surface to the shopper.
func (r *Recorder) ObserveCheckout(ctx context.Context, ev checkout.Event) {
	if r == nil || r.repo == nil {
		return
	}
	row, err := RowFromEvent(ev)
	if err != nil {
		r.logg.Error(ctx, "checkout.ledger_skipped", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.repo.Save(writeCtx, row); err != nil {
		r.logg.Error(r.logg.WithAttemptID(ctx, ev.AttemptID), "checkout.ledger_write_failed", err)
	}
}

// RowFromEvent maps a transition to the ledger row as it stands after it.
func RowFromEvent(ev checkout.Event) (*models.CheckoutAttempt, error) {
	id, err := uuid.Parse(ev.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("parsing attempt id: %w", err)
	}

	row := &models.CheckoutAttempt{
		ID:              id,
		ShopperID:       ev.ShopperID,
		Status:          string(ev.To),
		OrderID:         optional(ev.OrderID),
		OrderNumber:     optional(ev.OrderNumber),
		PaymentIntentID: optional(ev.PaymentIntentID),
		DerivedTotal:    ev.Total,
		ShippingInfo:    ev.ShippingInfo,
		StartedAt:       ev.At.Add(-ev.Elapsed).UTC(),
	}

	if ev.To == checkout.StatusFailed {
		pe := &checkout.PhaseError{Phase: ev.Phase, Err: ev.Err}
		row.FailedPhase = optional(string(ev.Phase))
		row.ErrorCode = optional(string(pe.Code()))
		row.ErrorMessage = optional(pe.UserMessage())
		row.OrphanedUnpaidOrder = pe.OrderCreated() && ev.OrderID != ""
	}
	if ev.To.Terminal() {
		done := ev.At.UTC()
		row.CompletedAt = &done
	}
	return row, nil
}

func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// codeOf is the ledger error code for ev, or "" when it did not fail.
func codeOf(ev checkout.Event) pkgerrors.Code {
	if ev.To != checkout.StatusFailed {
		return ""
	}
	return pkgerrors.CodeOf(ev.Err)
}
