package pubsub

import (
	"context"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *pubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// EventPublisher publishes a message and waits for the server ack.
type EventPublisher struct {
	pub     publisher
	timeout time.Duration
}

// NewEventPublisher wraps a topic publisher. A nil topic yields nil.
func NewEventPublisher(p *pubsub.Publisher, timeout time.Duration) *EventPublisher {
	if p == nil {
		return nil
	}
	return newEventPublisher(&gcpPublisher{Publisher: p}, timeout)
}

func newEventPublisher(p publisher, timeout time.Duration) *EventPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &EventPublisher{pub: p, timeout: timeout}
}

// Publish sends data with attributes and returns the server message id.
func (e *EventPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	if e == nil || e.pub == nil {
		return "", errors.New("publisher not configured")
	}
	publishCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := e.pub.Publish(publishCtx, &pubsub.Message{Data: data, Attributes: attributes})
	if result == nil {
		return "", errors.New("publisher returned nil result")
	}
	return result.Get(publishCtx)
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
