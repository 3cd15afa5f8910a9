package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	cartctl "github.com/angelmondragon/techstore-checkout/api/controllers/cart"
	"github.com/angelmondragon/techstore-checkout/api/middleware"
	"github.com/angelmondragon/techstore-checkout/api/responses"
	"github.com/angelmondragon/techstore-checkout/api/validators"
	"github.com/angelmondragon/techstore-checkout/internal/attempts"
	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/pagination"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

const maxPaymentMethodLen = 255

// CheckoutSubmit runs one checkout attempt against the shopper's current cart.
func CheckoutSubmit(sessions cartctl.SessionProvider, orch *checkout.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sessions == nil || orch == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeServiceUnavailable, "checkout unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, store, err := cartctl.SessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := cartctl.EnsureLoaded(ctx, store); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		attempt := orch.NewAttempt(checkout.Request{
			Shopper:          session,
			Cart:             store,
			ShippingInfo:     payload.ShippingInfo.toShippingInfo(),
			PaymentMethodRef: validators.SanitizeString(payload.PaymentMethodID, maxPaymentMethodLen),
		})
		ctx = logg.WithAttemptID(ctx, attempt.ID())

		result, err := attempt.Run(ctx)
		if err != nil {
			writeAttemptFailure(r, w, logg, attempt, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

func writeAttemptFailure(r *http.Request, w http.ResponseWriter, logg *logger.Logger, attempt *checkout.Attempt, err error) {
	ctx := logg.WithAttemptID(r.Context(), attempt.ID())
	pe := checkout.AsPhaseError(err)
	if pe == nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}

	code := pe.Code()
	meta := pkgerrors.MetadataFor(code)
	details := failureDetails(attempt.ID(), pe, attempt.Session())
	if typed := pkgerrors.As(pe.Err); typed != nil && pkgerrors.IsValidation(code) && typed.Details() != nil {
		details["fields"] = typed.Details()
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"phase":         string(pe.Phase),
		"error_code":    string(code),
		"order_created": pe.OrderCreated(),
		"http_status":   meta.HTTPStatus,
	})
	if meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(ctx, "checkout.rejected", err)
	} else {
		logg.Warn(ctx, "checkout.rejected")
	}

	responses.WriteAPIError(w, meta.HTTPStatus, types.APIError{
		Code:    string(code),
		Message: pe.UserMessage(),
		Details: details,
	})
}

// AttemptHistory lists the shopper's checkout attempts, newest first.
func AttemptHistory(service *attempts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeServiceUnavailable, "attempt history unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := service.History(ctx, middleware.ShopperIDFromContext(ctx), limit, r.URL.Query().Get("cursor"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AttemptDetail returns one of the shopper's attempts.
func AttemptDetail(service *attempts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeServiceUnavailable, "attempt history unavailable"))
			return
		}
		dto, err := service.Get(ctx, middleware.ShopperIDFromContext(ctx), chi.URLParam(r, "attemptId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// OrphanedOrders lists attempts that left an unpaid order behind.
func OrphanedOrders(service *attempts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeServiceUnavailable, "attempt history unavailable"))
			return
		}
		list, err := service.Orphaned(ctx, middleware.ShopperIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
