package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of *pgxpool.Pool used by Journal.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const createJournalTable = `
CREATE TABLE IF NOT EXISTS chatlink_lifecycle_events (
	event_id   UUID PRIMARY KEY,
	session_id UUID NOT NULL,
	kind       TEXT NOT NULL,
	room       TEXT,
	emitted_at TIMESTAMPTZ NOT NULL
)`

const insertJournalEvent = `
INSERT INTO chatlink_lifecycle_events (event_id, session_id, kind, room, emitted_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (event_id) DO NOTHING`

// Journal records lifecycle events in PostgreSQL.
type Journal struct {
	db      Execer
	logger  *slog.Logger
	timeout time.Duration
}

// NewJournal creates a Journal writing through db.
func NewJournal(db Execer, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		db:      db,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// EnsureSchema creates the journal table if it does not exist.
func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, createJournalTable); err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}
	return nil
}

// Notify inserts ev. Failures are logged and otherwise ignored.
func (j *Journal) Notify(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
	defer cancel()

	var room any
	if ev.Room != "" {
		room = string(ev.Room)
	}

	if _, err := j.db.Exec(ctx, insertJournalEvent, ev.ID, ev.SessionID, string(ev.Kind), room, ev.At); err != nil {
		j.logger.Warn("failed to journal lifecycle event",
			"kind", ev.Kind,
			"event_id", ev.ID,
			"error", err,
		)
	}
}
