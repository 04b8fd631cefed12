package room

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/rickgao/chatlink/internal/model"
)

// Lister enumerates the rooms available under a group domain.
type Lister interface {
	ListRooms(ctx context.Context, domain string) ([]model.RoomID, error)
}

// Stats counts how rooms were resolved.
type Stats struct {
	Resolves      int64 // Total Resolve calls
	Discoveries   int64 // Resolves that queried the server ("all")
	LastRoomCount int   // Rooms returned by the most recent Resolve
}

// Registry resolves room specs.
type Registry struct {
	logger *slog.Logger

	resolves      atomic.Int64
	discoveries   atomic.Int64
	lastRoomCount atomic.Int64
}

// NewRegistry creates a Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Resolve returns the rooms selected by spec, in order.
//
// For the "all" sentinel it makes exactly one ListRooms call scoped to domain
// and keeps the server's order. Otherwise it returns a copy of the explicit
// list and never touches lister.
func (r *Registry) Resolve(ctx context.Context, spec model.RoomSpec, domain string, lister Lister) ([]model.RoomID, error) {
	r.resolves.Add(1)

	if !spec.All {
		rooms := slices.Clone(spec.Rooms)
		r.lastRoomCount.Store(int64(len(rooms)))
		return rooms, nil
	}

	r.discoveries.Add(1)
	rooms, err := lister.ListRooms(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("list rooms in %s: %w", domain, err)
	}
	r.lastRoomCount.Store(int64(len(rooms)))

	r.logger.Debug("discovered rooms",
		"domain", domain,
		"count", len(rooms),
	)

	return rooms, nil
}

// Stats returns resolution counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Resolves:      r.resolves.Load(),
		Discoveries:   r.discoveries.Load(),
		LastRoomCount: int(r.lastRoomCount.Load()),
	}
}
