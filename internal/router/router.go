package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rickgao/chatlink/internal/model"
)

// Router routes outbound batches to a session.
type Router interface {
	// Send delivers messages to target through sender as a single batch.
	Send(ctx context.Context, sender Sender, target model.Target, messages []string) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	logger *slog.Logger

	mu     sync.RWMutex
	direct int64
	group  int64
	msgs   int64
	errors int64
}

// NewRouter creates a new Message Router.
func NewRouter(logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &router{logger: logger}
}

// Send routes a batch based on the target kind.
func (r *router) Send(ctx context.Context, sender Sender, target model.Target, messages []string) error {
	var err error

	switch target.Kind() {
	case model.TargetDirect:
		err = sender.SendDirect(ctx, target.User, messages)
	case model.TargetGroup:
		err = sender.SendGroup(ctx, target.Room, messages)
	default:
		return &InvalidTargetError{Op: "send", Target: target}
	}

	if err != nil {
		r.mu.Lock()
		r.errors++
		r.mu.Unlock()

		r.logger.Warn("failed to send batch",
			"target", target.String(),
			"messages", len(messages),
			"error", err,
		)
		return &SendError{Target: target, Err: err}
	}

	r.mu.Lock()
	if target.IsDirect() {
		r.direct++
	} else {
		r.group++
	}
	r.msgs += int64(len(messages))
	r.mu.Unlock()

	return nil
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		BatchesRouted:  r.direct + r.group,
		DirectBatches:  r.direct,
		GroupBatches:   r.group,
		MessagesRouted: r.msgs,
		SendErrors:     r.errors,
	}
}
