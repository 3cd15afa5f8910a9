package checkout

import (
	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
)

type checkoutResponse struct {
	AttemptID       string                   `json:"attemptId"`
	OrderID         string                   `json:"orderId"`
	OrderNumber     string                   `json:"orderNumber"`
	PaymentIntentID string                   `json:"paymentIntentId"`
	Breakdown       pricing.DisplayBreakdown `json:"breakdown"`
	Total           string                   `json:"total"`
	CartCleared     bool                     `json:"cartCleared"`
}

func newCheckoutResponse(result *checkout.Result) checkoutResponse {
	return checkoutResponse{
		AttemptID:       result.AttemptID,
		OrderID:         result.OrderID,
		OrderNumber:     result.OrderNumber,
		PaymentIntentID: result.PaymentIntentID,
		Breakdown:       result.Breakdown.Display(),
		Total:           result.Total.StringFixed(2),
		CartCleared:     result.CartCleared,
	}
}

func failureDetails(attemptID string, pe *checkout.PhaseError, session checkout.Session) map[string]any {
	details := map[string]any{
		"attemptId":    attemptID,
		"phase":        string(pe.Phase),
		"orderCreated": pe.OrderCreated(),
	}
	if session.OrderID != "" {
		details["orderId"] = session.OrderID
		details["orderNumber"] = session.OrderNumber
	}
	return details
}
