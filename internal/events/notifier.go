package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/chatlink/internal/model"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	KindConnected    Kind = "connected"
	KindDisconnected Kind = "disconnected"
	KindJoined       Kind = "joined"
	KindParted       Kind = "parted"
	KindReconnected  Kind = "reconnected"
)

// Event is a single lifecycle notification.
type Event struct {
	ID        uuid.UUID    // Unique per event
	Kind      Kind         // What happened
	Room      model.RoomID // Set for joined/parted only
	SessionID uuid.UUID    // Session that produced the event
	At        time.Time    // Local time the event was emitted
}

// New builds an Event stamped with a fresh ID and the current time.
func New(kind Kind, sessionID uuid.UUID, room model.RoomID) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Room:      room,
		SessionID: sessionID,
		At:        time.Now(),
	}
}

// Notifier receives lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event)

// Notify calls f(ctx, ev).
func (f NotifierFunc) Notify(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Multi fans an event out to every notifier, in order.
type Multi []Notifier

// Notify delivers ev to each non-nil notifier.
func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// Discard drops every event.
var Discard Notifier = NotifierFunc(func(context.Context, Event) {})
