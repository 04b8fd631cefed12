package connection

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/rickgao/chatlink/internal/events"
)

// ReconnectState is the Reconnector's state.
type ReconnectState int32

const (
	StateIdle ReconnectState = iota
	StateReconnecting
)

func (s ReconnectState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ReconnectStats counts reconnection attempts.
type ReconnectStats struct {
	State     ReconnectState
	Attempts  int64 // Sequences that acquired the guard
	Completed int64 // Sequences that finished without error
	Failed    int64 // Sequences that returned an error
	Skipped   int64 // Calls turned away because a sequence was in flight
}

// Reconnector guards session re-establishment. At most one sequence runs at
// a time; callers that lose the race return immediately.
type Reconnector struct {
	guard    *semaphore.Weighted
	delay    time.Duration
	notifier events.Notifier
	logger   *slog.Logger

	state     atomic.Int32
	attempts  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// NewReconnector creates a Reconnector. delay is the automatic reconnection
// delay; 0 means connectors never trigger it on their own.
func NewReconnector(delay time.Duration, notifier events.Notifier, logger *slog.Logger) *Reconnector {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = events.Discard
	}
	return &Reconnector{
		guard:    semaphore.NewWeighted(1),
		delay:    delay,
		notifier: notifier,
		logger:   logger,
	}
}

// Delay returns the automatic reconnection delay.
func (r *Reconnector) Delay() time.Duration {
	return r.delay
}

// AutoReconnect reports whether connectors should be given a reconnection handler.
func (r *Reconnector) AutoReconnect() bool {
	return r.delay > 0
}

// State returns the current state.
func (r *Reconnector) State() ReconnectState {
	return ReconnectState(r.state.Load())
}

// Do runs establish if no other sequence is in flight.
//
// establish re-creates the session and returns its ID. On success Do emits
// reconnected. The guard is released on every exit path. ran is false when
// the call was turned away; err is establish's error, returned to the caller
// without retry.
func (r *Reconnector) Do(ctx context.Context, establish func(ctx context.Context) (uuid.UUID, error)) (ran bool, err error) {
	attempt := uuid.NewString()

	if !r.guard.TryAcquire(1) {
		r.skipped.Add(1)
		r.logger.Info("reconnection already in progress, skipping", "attempt", attempt)
		return false, nil
	}
	defer r.guard.Release(1)

	r.state.Store(int32(StateReconnecting))
	defer r.state.Store(int32(StateIdle))

	r.attempts.Add(1)
	r.logger.Info("reconnection started", "attempt", attempt)

	sessionID, err := establish(ctx)
	if err != nil {
		r.failed.Add(1)
		r.logger.Warn("reconnection failed", "attempt", attempt, "error", err)
		return true, err
	}

	r.completed.Add(1)
	r.logger.Info("reconnection completed", "attempt", attempt, "session_id", sessionID)
	r.notifier.Notify(ctx, events.New(events.KindReconnected, sessionID, ""))

	return true, nil
}

// Stats returns attempt counters.
func (r *Reconnector) Stats() ReconnectStats {
	return ReconnectStats{
		State:     r.State(),
		Attempts:  r.attempts.Load(),
		Completed: r.completed.Load(),
		Failed:    r.failed.Load(),
		Skipped:   r.skipped.Load(),
	}
}
