// Package events holds the event types capture adapters emit into the
// assistant session.
package events

import "time"

// Kind names an event type.
type Kind string

// Event is what flows through a capture stream. The session dispatches on
// the concrete struct; Kind identifies events in logs.
type Event interface {
	Kind() Kind
}

// Base carries the fields every event shares. Embed it and construct it
// with NewBase.
type Base struct {
	kind       Kind
	occurredAt time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, occurredAt: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

// OccurredAt is when the adapter emitted the event, not when the session
// applied it.
func (b Base) OccurredAt() time.Time { return b.occurredAt }
