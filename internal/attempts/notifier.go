package attempts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

const (
	EventTypePartialFailure = "checkout.partial_failure"
	EventTypeSucceeded      = "checkout.succeeded"

	envelopeVersion = 1
)

// Publisher sends one message to the checkout topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Envelope is the message body published for checkout outcomes.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// OutcomePayload describes a terminal attempt.
type OutcomePayload struct {
	AttemptID       string `json:"attemptId"`
	ShopperID       string `json:"shopperId"`
	OrderID         string `json:"orderId,omitempty"`
	OrderNumber     string `json:"orderNumber,omitempty"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	Total           string `json:"total"`
	Phase           string `json:"phase,omitempty"`
	Code            string `json:"code,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Notifier publishes succeeded attempts and failures that left an unpaid
// order, so order reconciliation can pick them up.
type Notifier struct {
	pub  Publisher
	logg *logger.Logger
}

func NewNotifier(pub Publisher, logg *logger.Logger) *Notifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Notifier{pub: pub, logg: logg}
}

func (n *Notifier) ObserveCheckout(ctx context.Context, ev checkout.Event) {
	if n == nil || n.pub == nil {
		return
	}
	eventType, ok := outcomeType(ev)
	if !ok {
		return
	}

	payload := OutcomePayload{
		AttemptID:       ev.AttemptID,
		ShopperID:       ev.ShopperID,
		OrderID:         ev.OrderID,
		OrderNumber:     ev.OrderNumber,
		PaymentIntentID: ev.PaymentIntentID,
		Total:           ev.Total.StringFixed(2),
	}
	if ev.To == checkout.StatusFailed {
		payload.Phase = string(ev.Phase)
		payload.Code = string(codeOf(ev))
		if ev.Err != nil {
			payload.Reason = ev.Err.Error()
		}
	}

	body, err := encodeEnvelope(eventType, ev.At, payload)
	if err != nil {
		n.logg.Error(ctx, "checkout.notify_encode_failed", err)
		return
	}

	attrs := map[string]string{
		"event_type": eventType,
		"attempt_id": ev.AttemptID,
		"shopper_id": ev.ShopperID,
	}
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"attempt_id": ev.AttemptID,
		"event_type": eventType,
	})
	msgID, err := n.pub.Publish(context.WithoutCancel(ctx), body, attrs)
	if err != nil {
		n.logg.Error(logCtx, "checkout.notify_failed", err)
		return
	}
	n.logg.Info(n.logg.WithField(logCtx, "message_id", msgID), "checkout.notified")
}

func outcomeType(ev checkout.Event) (string, bool) {
	switch ev.To {
	case checkout.StatusSucceeded:
		return EventTypeSucceeded, true
	case checkout.StatusFailed:
		pe := &checkout.PhaseError{Phase: ev.Phase, Err: ev.Err}
		if pe.OrderCreated() && ev.OrderID != "" {
			return EventTypePartialFailure, true
		}
	}
	return "", false
}

func encodeEnvelope(eventType string, at time.Time, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	return json.Marshal(Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: at.UTC(),
		Data:       data,
	})
}
