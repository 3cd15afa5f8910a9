package checkout

import (
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
	"github.com/shopspring/decimal"
)

// Session is the ephemeral data of one checkout attempt. It is created when
// the attempt begins and discarded once the attempt is terminal.
type Session struct {
	AttemptID           string
	ShopperID           string
	ShippingInfo        types.ShippingInfo
	LineItems           []types.LineItem
	Breakdown           pricing.CostBreakdown
	DerivedTotal        decimal.Decimal
	OrderID             string
	OrderNumber         string
	ServerTotal         decimal.Decimal
	PaymentIntentSecret string
	PaymentIntentID     string
	State               State
}

func (s Session) clone() Session {
	s.LineItems = types.CloneLineItems(s.LineItems)
	return s
}

// Result is returned by a successful attempt.
type Result struct {
	AttemptID       string
	OrderID         string
	OrderNumber     string
	PaymentIntentID string
	Breakdown       pricing.CostBreakdown
	// Total is the order service's total when it reported one, else the derived total.
	Total       decimal.Decimal
	CartCleared bool
}
