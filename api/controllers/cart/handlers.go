package cart

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/techstore-checkout/api/responses"
	"github.com/angelmondragon/techstore-checkout/api/validators"
	cartsvc "github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

const maxProductIDLen = 128

// CartFetch returns the shopper's cart with its cost breakdown. The cart is
// fetched from the backend on first use or when refresh=true.
func CartFetch(sessions SessionProvider, engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		_, store, err := SessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
		if refresh {
			err = store.Load(r.Context())
		} else {
			err = EnsureLoaded(r.Context(), store)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeCart(w, r, store, engine, logg, http.StatusOK)
	}
}

// CartAddItem adds a product to the cart.
func CartAddItem(sessions SessionProvider, engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return mutate(sessions, engine, logg, http.StatusCreated, func(r *http.Request, store *cartsvc.Store) error {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		productID := validators.SanitizeString(payload.ProductID, maxProductIDLen)
		return store.AddItem(r.Context(), productID, payload.Quantity)
	})
}

// CartUpdateItem sets the quantity of a product already in the cart.
func CartUpdateItem(sessions SessionProvider, engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return mutate(sessions, engine, logg, http.StatusOK, func(r *http.Request, store *cartsvc.Store) error {
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		return store.UpdateQuantity(r.Context(), productIDParam(r), payload.Quantity)
	})
}

// CartRemoveItem removes a product. Removing an absent product succeeds.
func CartRemoveItem(sessions SessionProvider, engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return mutate(sessions, engine, logg, http.StatusOK, func(r *http.Request, store *cartsvc.Store) error {
		return store.RemoveItem(r.Context(), productIDParam(r))
	})
}

// CartClear empties the cart.
func CartClear(sessions SessionProvider, engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return mutate(sessions, engine, logg, http.StatusOK, func(r *http.Request, store *cartsvc.Store) error {
		return store.Clear(r.Context())
	})
}

func mutate(sessions SessionProvider, engine *pricing.Engine, logg *logger.Logger, status int, op func(*http.Request, *cartsvc.Store) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		_, store, err := SessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := EnsureLoaded(r.Context(), store); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := op(r, store); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, r, store, engine, logg, status)
	}
}

func writeCart(w http.ResponseWriter, r *http.Request, store *cartsvc.Store, engine *pricing.Engine, logg *logger.Logger, status int) {
	items := store.Items()
	breakdown, err := engine.ComputeBreakdown(items)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, newCartResponse(items, breakdown))
}

func productIDParam(r *http.Request) string {
	return validators.SanitizeString(chi.URLParam(r, "productId"), maxProductIDLen)
}
