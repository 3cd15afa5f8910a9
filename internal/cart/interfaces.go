package cart

import (
	"context"

	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

// Service is the remote cart collaborator. Every call returns the full
// authoritative item list for the shopper bound to ctx.
type Service interface {
	GetCart(ctx context.Context) ([]types.LineItem, error)
	AddItem(ctx context.Context, productID string, quantity int) ([]types.LineItem, error)
	UpdateItem(ctx context.Context, productID string, quantity int) ([]types.LineItem, error)
	RemoveItem(ctx context.Context, productID string) ([]types.LineItem, error)
	ClearCart(ctx context.Context) ([]types.LineItem, error)
}

// Session exposes the authenticated shopper a store acts for.
type Session interface {
	ShopperID() string
	AccessToken() string
}

// MutationObserver is told the outcome of every store operation.
type MutationObserver interface {
	ObserveCartMutation(op string, err error)
}
