// Package payments confirms payment intents with the payment processor.
package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	pkgstripe "github.com/angelmondragon/techstore-checkout/pkg/stripe"
)

// IntentConfirmer is the subset of the Stripe payment intent API the processor needs.
type IntentConfirmer interface {
	Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

type stripeIntentWrapper struct{}

// NewIntentConfirmer wraps the initialized Stripe client so the processor can be tested.
func NewIntentConfirmer(api *pkgstripe.Client) IntentConfirmer {
	if api == nil {
		return nil
	}
	return &stripeIntentWrapper{}
}

func (w *stripeIntentWrapper) Confirm(ctx context.Context, id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.Confirm(id, params)
}

// StripeProcessor implements checkout.PaymentProcessor.
type StripeProcessor struct {
	intents   IntentConfirmer
	returnURL string
	logg      *logger.Logger
}

func NewStripeProcessor(intents IntentConfirmer, returnURL string, logg *logger.Logger) (*StripeProcessor, error) {
	if intents == nil {
		return nil, errors.New("stripe intent confirmer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &StripeProcessor{intents: intents, returnURL: strings.TrimSpace(returnURL), logg: logg}, nil
}

// ConfirmPayment confirms the intent behind clientSecret with the given
// payment method. Declines are reported as a result, not an error; errors
// mean the processor could not be reached or rejected the request itself.
func (p *StripeProcessor) ConfirmPayment(ctx context.Context, clientSecret, paymentMethodRef string) (checkout.PaymentResult, error) {
	intentID := checkout.IntentIDFromSecret(strings.TrimSpace(clientSecret))
	if intentID == "" {
		return checkout.PaymentResult{}, pkgerrors.New(pkgerrors.CodeServiceRejected, "malformed payment client secret")
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(strings.TrimSpace(paymentMethodRef)),
	}
	if p.returnURL != "" {
		params.ReturnURL = stripe.String(p.returnURL)
	}

	ctx = p.logg.WithField(ctx, "payment_intent_id", intentID)
	intent, err := p.intents.Confirm(ctx, intentID, params)
	if err != nil {
		return p.confirmError(ctx, err)
	}
	if intent == nil {
		return checkout.PaymentResult{}, pkgerrors.New(pkgerrors.CodeServiceRejected, "empty payment intent response")
	}

	result := checkout.PaymentResult{Status: mapStatus(intent.Status)}
	if intent.LastPaymentError != nil {
		result.Message = intent.LastPaymentError.Msg
	}
	p.logg.Info(p.logg.WithField(ctx, "stripe_status", string(intent.Status)), "payments.confirmed")
	return result, nil
}

func (p *StripeProcessor) confirmError(ctx context.Context, err error) (checkout.PaymentResult, error) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return checkout.PaymentResult{}, pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "payment processor unreachable")
	}

	ctx = p.logg.WithFields(ctx, map[string]any{
		"stripe_type":   string(stripeErr.Type),
		"stripe_code":   string(stripeErr.Code),
		"stripe_status": stripeErr.HTTPStatusCode,
	})

	switch {
	case stripeErr.Type == stripe.ErrorTypeCard || stripeErr.HTTPStatusCode == http.StatusPaymentRequired:
		p.logg.Warn(ctx, "payments.declined")
		return checkout.PaymentResult{Status: checkout.PaymentFailed, Message: stripeErr.Msg}, nil
	case stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
		p.logg.Error(ctx, "payments.processor_unavailable", err)
		return checkout.PaymentResult{}, pkgerrors.Wrap(pkgerrors.CodeServiceUnavailable, err, "payment processor unavailable").
			WithDetails(map[string]any{"status": stripeErr.HTTPStatusCode})
	default:
		p.logg.Error(ctx, "payments.processor_rejected", err)
		return checkout.PaymentResult{}, pkgerrors.Wrap(pkgerrors.CodeServiceRejected, err, stripeErr.Msg).
			WithDetails(map[string]any{"status": stripeErr.HTTPStatusCode})
	}
}

func mapStatus(status stripe.PaymentIntentStatus) checkout.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return checkout.PaymentSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		return checkout.PaymentRequiresAction
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		return checkout.PaymentFailed
	}
	return checkout.PaymentStatus(status)
}
