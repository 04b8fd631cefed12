package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/chatlink/internal/model"
)

// Snapshot is a point-in-time view of what a Tracker has observed.
type Snapshot struct {
	SessionID   uuid.UUID
	Connected   bool
	Rooms       []model.RoomID
	Reconnects  int64
	LastEvent   Kind
	LastEventAt time.Time
}

// Tracker folds lifecycle events into current session state.
// It is safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	state Snapshot
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Notify applies ev to the tracked state.
func (t *Tracker) Notify(_ context.Context, ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case KindConnected:
		t.state.Connected = true
		t.state.SessionID = ev.SessionID
		t.state.Rooms = nil
	case KindDisconnected:
		t.state.Connected = false
		t.state.Rooms = nil
	case KindJoined:
		if !slices.Contains(t.state.Rooms, ev.Room) {
			t.state.Rooms = append(t.state.Rooms, ev.Room)
		}
	case KindParted:
		t.state.Rooms = slices.DeleteFunc(t.state.Rooms, func(r model.RoomID) bool {
			return r == ev.Room
		})
	case KindReconnected:
		t.state.Reconnects++
	}

	t.state.LastEvent = ev.Kind
	t.state.LastEventAt = ev.At
}

// Snapshot returns a copy of the tracked state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.state
	s.Rooms = slices.Clone(t.state.Rooms)
	return s
}
