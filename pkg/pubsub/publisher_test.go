package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) { return r.id, r.err }

type fakePublisher struct {
	msgs   []*pubsub.Message
	result publishResult
}

func (f *fakePublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	if _, ok := ctx.Deadline(); !ok {
		return fakeResult{err: errors.New("missing deadline")}
	}
	return f.result
}

func TestEventPublisherPublishes(t *testing.T) {
	fake := &fakePublisher{result: fakeResult{id: "msg-1"}}
	pub := newEventPublisher(fake, time.Second)

	id, err := pub.Publish(context.Background(), []byte(`{"a":1}`), map[string]string{"event_type": "x"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "msg-1" {
		t.Fatalf("unexpected id %q", id)
	}
	if len(fake.msgs) != 1 || fake.msgs[0].Attributes["event_type"] != "x" || string(fake.msgs[0].Data) != `{"a":1}` {
		t.Fatalf("unexpected message %+v", fake.msgs)
	}
}

func TestEventPublisherErrors(t *testing.T) {
	var nilPub *EventPublisher
	if _, err := nilPub.Publish(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil publisher")
	}
	if NewEventPublisher(nil, 0) != nil {
		t.Fatalf("expected nil for nil topic")
	}

	fake := &fakePublisher{}
	if _, err := newEventPublisher(fake, 0).Publish(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil result")
	}

	fake.result = fakeResult{err: errors.New("unavailable")}
	if _, err := newEventPublisher(fake, 0).Publish(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"proj", "checkout-events", "projects/proj/topics/checkout-events"},
		{"proj", "projects/other/topics/t", "projects/other/topics/t"},
		{"", "t", ""},
		{"proj", " ", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("%q/%q: expected %q, got %q", tc.project, tc.name, tc.want, got)
		}
	}
}
