package cart

import (
	"context"
	"net/http"

	"github.com/angelmondragon/techstore-checkout/api/middleware"
	cartsvc "github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/internal/shopper"
	"github.com/angelmondragon/techstore-checkout/pkg/auth"
)

// SessionProvider returns the shopper's session and cart store.
type SessionProvider interface {
	Acquire(shopperID, accessToken string) (*shopper.Session, *cartsvc.Store, error)
}

// SessionFromRequest resolves the authenticated shopper's session and cart.
func SessionFromRequest(r *http.Request, sessions SessionProvider) (*shopper.Session, *cartsvc.Store, error) {
	ctx := r.Context()
	return sessions.Acquire(middleware.ShopperIDFromContext(ctx), auth.AccessTokenFromContext(ctx))
}

// EnsureLoaded fetches the cart from the backend the first time a store is used.
func EnsureLoaded(ctx context.Context, store *cartsvc.Store) error {
	if store.Loaded() {
		return nil
	}
	return store.Load(ctx)
}
