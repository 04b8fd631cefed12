package events

import (
	"context"
	"log/slog"
)

// LogNotifier writes each event to a structured logger at Info level.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, ev Event) {
	attrs := []any{
		"event_id", ev.ID,
		"session_id", ev.SessionID,
	}
	if ev.Room != "" {
		attrs = append(attrs, "room", ev.Room)
	}
	n.logger.InfoContext(ctx, string(ev.Kind), attrs...)
}
