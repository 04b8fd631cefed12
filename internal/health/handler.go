package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/events"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/version"
)

// Status values reported by the endpoint.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// StateSource reports the last observed session state.
type StateSource interface {
	Snapshot() events.Snapshot
}

// StatsSource reports manager counters.
type StatsSource interface {
	Stats() connection.ManagerStats
}

// Pinger checks a backing store. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the JSON body served on /health.
type Report struct {
	Status  string        `json:"status"`
	Version version.Info  `json:"version"`
	Session SessionReport `json:"session"`
	Journal string        `json:"journal"`
}

// SessionReport describes the live session.
type SessionReport struct {
	ID                string         `json:"id"`
	Connected         bool           `json:"connected"`
	Rooms             []model.RoomID `json:"rooms"`
	Reconnects        int64          `json:"reconnects"`
	ReconnectsSkipped int64          `json:"reconnects_skipped"`
	Reconnecting      bool           `json:"reconnecting"`
	LastEvent         string         `json:"last_event,omitempty"`
}

// Handler serves /health.
type Handler struct {
	state   StateSource
	stats   StatsSource
	journal Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewHandler creates a health handler. stats and journal may be nil.
func NewHandler(state StateSource, stats StatsSource, journal Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		state:   state,
		stats:   stats,
		journal: journal,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Mux returns a ServeMux with the health route registered.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /health", h)
	return mux
}

// ServeHTTP writes the current Report. Unhealthy reports use 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.logger.Warn("failed to write health response", "error", err)
	}
}

// Check builds a Report.
func (h *Handler) Check(ctx context.Context) Report {
	snap := h.state.Snapshot()

	report := Report{
		Status:  StatusHealthy,
		Version: version.Get(),
		Session: SessionReport{
			Connected:  snap.Connected,
			Rooms:      snap.Rooms,
			Reconnects: snap.Reconnects,
		},
		Journal: "disabled",
	}
	if report.Session.Rooms == nil {
		report.Session.Rooms = []model.RoomID{}
	}
	if snap.LastEvent != "" {
		report.Session.LastEvent = string(snap.LastEvent)
	}
	if snap.Connected {
		report.Session.ID = snap.SessionID.String()
	}

	if h.stats != nil {
		st := h.stats.Stats()
		report.Session.ReconnectsSkipped = st.Reconnect.Skipped
		report.Session.Reconnecting = st.Reconnect.State == connection.StateReconnecting
	}

	if !snap.Connected {
		report.Status = StatusUnhealthy
	}

	if h.journal != nil {
		if err := h.journal.Ping(ctx); err != nil {
			report.Journal = "disconnected: " + err.Error()
			report.Status = StatusUnhealthy
		} else {
			report.Journal = "connected"
		}
	}

	if report.Status == StatusHealthy && report.Session.Reconnecting {
		report.Status = StatusDegraded
	}

	return report
}
