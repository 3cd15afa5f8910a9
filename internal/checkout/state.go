package checkout

import (
	stdErrors "errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

// Phase names the remote step a failure belongs to.
type Phase string

const (
	PhaseOrderCreation       Phase = "order_creation"
	PhaseIntentCreation      Phase = "intent_creation"
	PhasePaymentConfirmation Phase = "payment_confirmation"
)

// Status is the position of an attempt in the checkout state machine.
type Status string

const (
	StatusIdle                  Status = "idle"
	StatusSubmittingOrder       Status = "submitting_order"
	StatusCreatingPaymentIntent Status = "creating_payment_intent"
	StatusConfirmingPayment     Status = "confirming_payment"
	StatusSucceeded             Status = "succeeded"
	StatusFailed                Status = "failed"
)

// Phase returns the remote step performed while in s, or "" for idle and terminal states.
func (s Status) Phase() Phase {
	switch s {
	case StatusSubmittingOrder:
		return PhaseOrderCreation
	case StatusCreatingPaymentIntent:
		return PhaseIntentCreation
	case StatusConfirmingPayment:
		return PhasePaymentConfirmation
	}
	return ""
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

var allowedTransitions = map[Status][]Status{
	StatusIdle:                  {StatusSubmittingOrder, StatusFailed},
	StatusSubmittingOrder:       {StatusCreatingPaymentIntent, StatusFailed},
	StatusCreatingPaymentIntent: {StatusConfirmingPayment, StatusFailed},
	StatusConfirmingPayment:     {StatusSucceeded, StatusFailed},
}

func canTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// State is Status plus, for Failed, the phase and reason.
type State struct {
	Status Status
	Phase  Phase
	Reason error
}

func (s State) String() string {
	if s.Status == StatusFailed {
		return fmt.Sprintf("failed(%s, %v)", s.Phase, s.Reason)
	}
	return string(s.Status)
}

// PhaseError is returned by a failed attempt. Err carries the typed error kind.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("checkout %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Code returns the error kind of the underlying failure.
func (e *PhaseError) Code() pkgerrors.Code {
	return pkgerrors.CodeOf(e.Err)
}

// OrderCreated reports whether the order exists server-side, so the shopper
// may have an unpaid order from this attempt.
func (e *PhaseError) OrderCreated() bool {
	return e.Phase == PhaseIntentCreation || e.Phase == PhasePaymentConfirmation
}

// UserMessage is the shopper-facing text. It always says which step failed
// and whether a charge could have happened.
func (e *PhaseError) UserMessage() string {
	code := e.Code()
	local := pkgerrors.IsValidation(code) || code == pkgerrors.CodeUnauthenticated || code == pkgerrors.CodeCheckoutInProgress
	if local && !e.OrderCreated() {
		if typed := pkgerrors.As(e.Err); typed != nil && typed.Message() != "" {
			return typed.Message()
		}
		return pkgerrors.MetadataFor(code).PublicMessage
	}

	switch e.Phase {
	case PhaseOrderCreation:
		return "We could not place your order. You have not been charged."
	case PhaseIntentCreation:
		return "Your order was created but payment could not be started. You have not been charged."
	case PhasePaymentConfirmation:
		if code == pkgerrors.CodePaymentRequiresAction {
			return "Your payment needs additional verification. Please try again."
		}
		if typed := pkgerrors.As(e.Err); typed != nil && code == pkgerrors.CodePaymentDeclined {
			if msg := strings.TrimSpace(typed.Message()); msg != "" {
				return msg
			}
		}
		return "Payment was not completed."
	}
	return pkgerrors.MetadataFor(code).PublicMessage
}

// AsPhaseError extracts a *PhaseError from err.
func AsPhaseError(err error) *PhaseError {
	var pe *PhaseError
	if stdErrors.As(err, &pe) {
		return pe
	}
	return nil
}
