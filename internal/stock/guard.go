// Package stock checks requested quantities against last-known inventory.
package stock

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

// ExceedsStockDetail tells the caller the corrected maximum to re-prompt with.
type ExceedsStockDetail struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}

// ValidateQuantity returns requested unchanged when it fits within available.
// Larger requests are rejected rather than clamped.
func ValidateQuantity(requested, available int) (int, error) {
	if requested < 1 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1").
			WithDetails(map[string]any{"requested": requested})
	}
	if available < 0 {
		available = 0
	}
	if requested > available {
		return 0, pkgerrors.New(pkgerrors.CodeExceedsStock, fmt.Sprintf("only %d in stock", available)).
			WithDetails(ExceedsStockDetail{Requested: requested, Available: available})
	}
	return requested, nil
}

// Line is the minimal view of a line needed for a whole-cart check.
type Line struct {
	ProductID string
	Quantity  int
	Available int
}

// LineViolation describes one line that no longer fits current stock.
type LineViolation struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// ValidateLines checks every line and reports all violations at once.
func ValidateLines(lines []Line) error {
	var violations []LineViolation
	for _, line := range lines {
		if _, err := ValidateQuantity(line.Quantity, line.Available); err != nil {
			violations = append(violations, LineViolation{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: line.Available,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeExceedsStock, fmt.Sprintf("%d item(s) exceed available stock", len(violations))).
		WithDetails(map[string]any{"violations": violations})
}
