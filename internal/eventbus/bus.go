package eventbus

import (
	"context"

	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/telemetry"
)

type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Event is a snippet lifecycle notification.
type Event struct {
	Kind    Kind
	Snippet *snippets.Snippet
}

// Bus is the process-wide lifecycle channel shared by the stores of a session.
type Bus struct {
	topic Topic[Event]
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.Snippet == nil {
		return
	}
	telemetry.LogInfo(ctx, "snippet lifecycle event",
		telemetry.LogString("event.kind", string(e.Kind)),
		telemetry.LogString("snippet.id", e.Snippet.ID),
		telemetry.LogInt("event.subscribers", len(b.topic.subs)),
	)
	b.topic.Publish(e)
}

func (b *Bus) PublishDeleted(ctx context.Context, s *snippets.Snippet) {
	b.Publish(ctx, Event{Kind: Deleted, Snippet: s})
}

func (b *Bus) Subscribe(name string, fn func(Event)) *Subscription {
	return b.topic.Subscribe(name, fn)
}

// SubscribeKind only delivers events of the given kind.
func (b *Bus) SubscribeKind(name string, kind Kind, fn func(*snippets.Snippet)) *Subscription {
	return b.topic.Subscribe(name, func(e Event) {
		if e.Kind == kind {
			fn(e.Snippet)
		}
	})
}

func (b *Bus) Subscribers() []string {
	return b.topic.Subscribers()
}
