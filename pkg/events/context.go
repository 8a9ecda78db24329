package events

import (
	"context"
)

// EventSink receives events published during an inference run.
type EventSink interface {
	PublishEvent(e Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(e Event) error

func (f EventSinkFunc) PublishEvent(e Event) error { return f(e) }

// ctxKey is an unexported type for keys defined in this package.
type ctxKey int

const ctxKeyEventSinks ctxKey = iota

// WithEventSinks attaches one or more EventSink instances to the context.
// Downstream code can publish events without access to delivery wiring.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := append([]EventSink{}, existing...)
	combined = append(combined, sinks...)
	return context.WithValue(ctx, ctxKeyEventSinks, combined)
}

// WithoutEventSinks detaches any sinks from the context so a nested run
// does not leak its progress into the caller's delivery stream.
func WithoutEventSinks(ctx context.Context) context.Context {
	if GetEventSinks(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyEventSinks, []EventSink(nil))
}

// GetEventSinks returns the sinks attached to the context, if any.
func GetEventSinks(ctx context.Context) []EventSink {
	if v := ctx.Value(ctxKeyEventSinks); v != nil {
		if sinks, ok := v.([]EventSink); ok {
			return sinks
		}
	}
	return nil
}

// PublishEventToContext publishes the event to all sinks in the context.
// Individual sink errors are ignored so one slow consumer cannot disrupt
// the inference flow.
func PublishEventToContext(ctx context.Context, event Event) {
	for _, sink := range GetEventSinks(ctx) {
		_ = sink.PublishEvent(event)
	}
}
