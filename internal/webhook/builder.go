package webhook

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// EventBuilder provides a fluent API for constructing webhook events.
//
//	event := webhook.NewEventBuilder(ctx, webhook.EventRuleCombined).
//		ForRule(id, source).
//		WithSources(ids).
//		Build()
type EventBuilder struct {
	event Event
}

// NewEventBuilder starts an event of the given type. The request id set by
// the HTTP middleware is copied from ctx when present.
func NewEventBuilder(ctx context.Context, eventType string) *EventBuilder {
	return &EventBuilder{
		event: Event{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetReqID(ctx),
		},
	}
}

// ForRule sets the rule the event describes.
func (b *EventBuilder) ForRule(id int64, source string) *EventBuilder {
	b.event.Rule = RuleRef{ID: id, Source: source}
	return b
}

// WithSources records the rules a combined rule was built from.
func (b *EventBuilder) WithSources(ids []int64) *EventBuilder {
	b.event.Sources = append([]int64(nil), ids...)
	return b
}

// InEnvironment tags the event with the deployment environment.
func (b *EventBuilder) InEnvironment(env string) *EventBuilder {
	b.event.Environment = env
	return b
}

// Build returns the constructed Event.
func (b *EventBuilder) Build() Event {
	return b.event
}
