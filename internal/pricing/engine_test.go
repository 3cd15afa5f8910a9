package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

func item(id, price string, qty int) types.LineItem {
	return types.LineItem{
		ProductID: id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
		Product:   types.ProductSnapshot{Name: id, StockQuantity: 100},
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultRules())
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine
}

func TestComputeBreakdownScenarios(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name     string
		items    []types.LineItem
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{
			name:     "above threshold ships free",
			items:    []types.LineItem{item("P1", "30.00", 2)},
			subtotal: "60.00", tax: "6.00", shipping: "0.00", total: "66.00",
		},
		{
			name:     "below threshold pays flat fee",
			items:    []types.LineItem{item("P1", "20.00", 1)},
			subtotal: "20.00", tax: "2.00", shipping: "10.00", total: "32.00",
		},
		{
			name:     "exactly at threshold is not free",
			items:    []types.LineItem{item("P1", "25.00", 2)},
			subtotal: "50.00", tax: "5.00", shipping: "10.00", total: "65.00",
		},
		{
			name:     "one cent over threshold is free",
			items:    []types.LineItem{item("P1", "50.01", 1)},
			subtotal: "50.01", tax: "5.00", shipping: "0.00", total: "55.01",
		},
		{
			name:     "empty cart",
			items:    nil,
			subtotal: "0.00", tax: "0.00", shipping: "10.00", total: "10.00",
		},
		{
			name:     "binary-unfriendly prices stay exact",
			items:    []types.LineItem{item("P1", "0.10", 3), item("P2", "0.20", 1)},
			subtotal: "0.50", tax: "0.05", shipping: "10.00", total: "10.55",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.ComputeBreakdown(tt.items)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			display := got.Display()
			if display.Subtotal != tt.subtotal || display.Tax != tt.tax || display.Shipping != tt.shipping || display.Total != tt.total {
				t.Fatalf("unexpected breakdown %+v", display)
			}
			if display.FreeShipping != (tt.shipping == "0.00") {
				t.Fatalf("free shipping flag mismatch %+v", display)
			}
		})
	}
}

func TestComputeBreakdownTotalInvariant(t *testing.T) {
	engine := newEngine(t)
	items := []types.LineItem{
		item("P1", "19.99", 3),
		item("P2", "0.01", 7),
		item("P3", "4.33", 1),
	}

	first, err := engine.ComputeBreakdown(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Total.Equal(first.Subtotal.Add(first.Tax).Add(first.Shipping)) {
		t.Fatalf("total must equal subtotal + tax + shipping: %+v", first)
	}
	if !first.Tax.Equal(first.Subtotal.Mul(decimal.RequireFromString("0.10"))) {
		t.Fatalf("tax must equal subtotal * rate: %+v", first)
	}

	for i := 0; i < 100; i++ {
		again, err := engine.ComputeBreakdown(items)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !again.Total.Equal(first.Total) || !again.Tax.Equal(first.Tax) {
			t.Fatalf("recomputation drifted on iteration %d: %+v vs %+v", i, again, first)
		}
	}
}

func TestComputeBreakdownRejectsInvalidItems(t *testing.T) {
	engine := newEngine(t)

	for name, bad := range map[string]types.LineItem{
		"negative price": item("P1", "-1.00", 1),
		"zero quantity":  item("P1", "1.00", 0),
		"negative qty":   item("P1", "1.00", -2),
	} {
		_, err := engine.ComputeBreakdown([]types.LineItem{item("OK", "1.00", 1), bad})
		if !pkgerrors.Is(err, pkgerrors.CodeInvalidLineItem) {
			t.Fatalf("%s: expected invalid line item, got %v", name, err)
		}
		details, _ := pkgerrors.As(err).Details().(map[string]any)
		if details["index"] != 1 {
			t.Fatalf("%s: expected offending index in details, got %v", name, details)
		}
	}
}

func TestNewEngineRejectsNegativeRules(t *testing.T) {
	rules := DefaultRules()
	rules.FlatShippingFee = decimal.NewFromInt(-1)
	if _, err := NewEngine(rules); err == nil {
		t.Fatalf("expected negative fee to be rejected")
	}
}
