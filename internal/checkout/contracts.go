package checkout

import (
	"context"
	"time"

	"github.com/angelmondragon/techstore-checkout/pkg/types"
	"github.com/shopspring/decimal"
)

// Order is the order service's view of a created order.
type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ShippingCost  decimal.Decimal `json:"shippingCost"`
	Total         decimal.Decimal `json:"total"`
}

// PaymentIntent is the result of create-intent for one order.
type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// PaymentStatus is the processor-reported outcome of a confirmation.
type PaymentStatus string

const (
	PaymentSucceeded      PaymentStatus = "succeeded"
	PaymentRequiresAction PaymentStatus = "requires_action"
	PaymentFailed         PaymentStatus = "failed"
)

// PaymentResult is what the processor reports after confirmation.
type PaymentResult struct {
	Status  PaymentStatus
	Message string
}

// OrderService creates orders from the shopper's server-side cart.
type OrderService interface {
	CreateOrder(ctx context.Context, shipping types.ShippingInfo) (Order, error)
}

// PaymentService creates a payment intent for an order.
type PaymentService interface {
	CreateIntent(ctx context.Context, orderID string) (PaymentIntent, error)
}

// PaymentProcessor confirms a payment intent with a payment method.
type PaymentProcessor interface {
	ConfirmPayment(ctx context.Context, clientSecret, paymentMethodRef string) (PaymentResult, error)
}

// Cart is the shopper's cart as seen by checkout: a snapshot source plus the
// clear operation used after a successful payment.
type Cart interface {
	Items() []types.LineItem
	Clear(ctx context.Context) error
}

// Shopper identifies who the attempt runs for.
type Shopper interface {
	ShopperID() string
	AccessToken() string
}

// Lock guarantees a single active attempt per shopper. Acquire fails with
// CHECKOUT_IN_PROGRESS when another attempt holds the slot.
type Lock interface {
	Acquire(ctx context.Context, shopperID string) (release func(), err error)
}

// Event describes one state transition of an attempt.
type Event struct {
	AttemptID string
	ShopperID string
	From      Status
	To        Status
	// Phase is the phase concluded by this transition, if any.
	Phase           Phase
	OrderID         string
	OrderNumber     string
	PaymentIntentID string
	ShippingInfo    types.ShippingInfo
	Total           decimal.Decimal
	Err             error
	At              time.Time
	Elapsed         time.Duration
}

// Observer is notified of every transition, in order, from the attempt's goroutine.
type Observer interface {
	ObserveCheckout(ctx context.Context, event Event)
}
