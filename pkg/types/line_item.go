package types

import "github.com/shopspring/decimal"

// ProductSnapshot is the product data captured alongside a cart line.
type ProductSnapshot struct {
	Name          string `json:"name"`
	StockQuantity int    `json:"stockQuantity"`
	ImageRef      string `json:"imageRef,omitempty"`
}

// LineItem is one product entry in a cart with the unit price captured when it was added.
type LineItem struct {
	ProductID string          `json:"productId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// LineTotal returns unit price times quantity without rounding.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CloneLineItems copies the slice so callers can hold a snapshot that later mutations never touch.
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
