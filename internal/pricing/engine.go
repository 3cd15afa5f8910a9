// Package pricing derives monetary totals from a cart's line items under the
// store's flat-rate rules. Nothing here is cached or persisted: every call
// recomputes from the items it is handed.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

// Rules are the flat-rate business rules applied to every cart.
type Rules struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultRules returns 10% tax and a 10.00 flat fee waived above 50.00.
func DefaultRules() Rules {
	return Rules{
		TaxRate:               decimal.RequireFromString("0.10"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		FlatShippingFee:       decimal.RequireFromString("10.00"),
	}
}

// CostBreakdown holds unrounded figures. Round only for display.
type CostBreakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// FreeShipping reports whether the shipping fee was waived.
func (b CostBreakdown) FreeShipping() bool {
	return b.Shipping.IsZero()
}

// DisplayBreakdown is the presentation form, each figure fixed to cents.
type DisplayBreakdown struct {
	Subtotal     string `json:"subtotal"`
	Tax          string `json:"tax"`
	Shipping     string `json:"shipping"`
	Total        string `json:"total"`
	FreeShipping bool   `json:"freeShipping"`
}

// Display rounds every figure half away from zero to two places.
func (b CostBreakdown) Display() DisplayBreakdown {
	return DisplayBreakdown{
		Subtotal:     b.Subtotal.StringFixed(2),
		Tax:          b.Tax.StringFixed(2),
		Shipping:     b.Shipping.StringFixed(2),
		Total:        b.Total.StringFixed(2),
		FreeShipping: b.FreeShipping(),
	}
}

// Engine computes cost breakdowns. It is stateless beyond its rules and safe for concurrent use.
type Engine struct {
	rules Rules
}

// NewEngine validates the rules and builds an engine.
func NewEngine(rules Rules) (*Engine, error) {
	if rules.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	if rules.FreeShippingThreshold.IsNegative() {
		return nil, fmt.Errorf("free shipping threshold must not be negative")
	}
	if rules.FlatShippingFee.IsNegative() {
		return nil, fmt.Errorf("flat shipping fee must not be negative")
	}
	return &Engine{rules: rules}, nil
}

// Rules returns the rules the engine applies.
func (e *Engine) Rules() Rules {
	return e.rules
}

// ComputeBreakdown derives subtotal, tax, shipping and total for items.
// An empty list is valid: subtotal and tax are zero and the flat fee applies.
func (e *Engine) ComputeBreakdown(items []types.LineItem) (CostBreakdown, error) {
	subtotal := decimal.Zero
	for i, item := range items {
		if err := validateLineItem(item); err != nil {
			return CostBreakdown{}, err.WithDetails(map[string]any{
				"index":      i,
				"product_id": item.ProductID,
			})
		}
		subtotal = subtotal.Add(item.LineTotal())
	}

	tax := subtotal.Mul(e.rules.TaxRate)

	// equal to the threshold does not qualify
	shipping := e.rules.FlatShippingFee
	if subtotal.GreaterThan(e.rules.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return CostBreakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}, nil
}

func validateLineItem(item types.LineItem) *pkgerrors.Error {
	if item.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInvalidLineItem, "unit price must not be negative")
	}
	if item.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeInvalidLineItem, "quantity must be at least 1")
	}
	return nil
}
