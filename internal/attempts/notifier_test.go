package attempts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
)

type publishedMessage struct {
	data  []byte
	attrs map[string]string
}

type fakePublisher struct {
	msgs []publishedMessage
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	f.msgs = append(f.msgs, publishedMessage{data: data, attrs: attrs})
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

func decode(t *testing.T, raw []byte) (Envelope, OutcomePayload) {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	var payload OutcomePayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return env, payload
}

func TestNotifierPublishesPartialFailure(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, nil)

	ev := baseEvent(checkout.StatusFailed)
	ev.Phase = checkout.PhasePaymentConfirmation
	ev.OrderID = "42"
	ev.PaymentIntentID = "pi_123"
	ev.Err = pkgerrors.New(pkgerrors.CodePaymentDeclined, "card declined")
	n.ObserveCheckout(context.Background(), ev)

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	require.Equal(t, EventTypePartialFailure, msg.attrs["event_type"])
	require.Equal(t, ev.AttemptID, msg.attrs["attempt_id"])

	env, payload := decode(t, msg.data)
	require.Equal(t, EventTypePartialFailure, env.EventType)
	require.Equal(t, 1, env.Version)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, "42", payload.OrderID)
	require.Equal(t, "payment_confirmation", payload.Phase)
	require.Equal(t, "PAYMENT_DECLINED", payload.Code)
	require.Equal(t, "66.00", payload.Total)
}

func TestNotifierPublishesSuccess(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, nil)

	ev := baseEvent(checkout.StatusSucceeded)
	ev.OrderID = "42"
	n.ObserveCheckout(context.Background(), ev)

	require.Len(t, pub.msgs, 1)
	_, payload := decode(t, pub.msgs[0].data)
	require.Empty(t, payload.Code)
	require.Equal(t, "42", payload.OrderID)
}

func TestNotifierIgnoresOtherTransitions(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, nil)

	n.ObserveCheckout(context.Background(), baseEvent(checkout.StatusSubmittingOrder))

	orderFailed := baseEvent(checkout.StatusFailed)
	orderFailed.Phase = checkout.PhaseOrderCreation
	orderFailed.Err = pkgerrors.New(pkgerrors.CodeServiceUnavailable, "down")
	n.ObserveCheckout(context.Background(), orderFailed)

	require.Empty(t, pub.msgs)
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("unavailable")}
	n := NewNotifier(pub, nil)

	ev := baseEvent(checkout.StatusSucceeded)
	n.ObserveCheckout(context.Background(), ev)
	require.Len(t, pub.msgs, 1)

	NewNotifier(nil, nil).ObserveCheckout(context.Background(), ev)
}
