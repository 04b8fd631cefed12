package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/chatlink/internal/events"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/room"
	"github.com/rickgao/chatlink/internal/router"
)

// Manager owns a chat session and its lifecycle.
type Manager interface {
	// Run connects, joins the configured rooms, and blocks until ctx is
	// cancelled, then shuts down. Cancellation is not an error.
	Run(ctx context.Context) error

	// Connect establishes the current session.
	Connect(ctx context.Context) error

	// JoinAll resolves the configured rooms and joins them in order.
	JoinAll(ctx context.Context) error

	// Join enters a room and emits joined after it succeeds.
	Join(ctx context.Context, room model.RoomID) error

	// Part emits parted and then leaves the room.
	Part(ctx context.Context, room model.RoomID) error

	// Send routes a message batch to a direct or group target.
	Send(ctx context.Context, target model.Target, messages []string) error

	// SetTopic sets the topic of a group target.
	SetTopic(ctx context.Context, target model.Target, topic string) error

	// ListRooms enumerates the rooms under the group domain.
	ListRooms(ctx context.Context) ([]model.RoomID, error)

	// Shutdown parts every joined room, closes the session, and emits disconnected.
	Shutdown(ctx context.Context) error

	// Reconnect re-creates the session unless a reconnection is already running.
	Reconnect(ctx context.Context) error

	// MentionFormat renders a user mention.
	MentionFormat(name string) string

	// Stats returns current session statistics.
	Stats() ManagerStats
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	SessionID uuid.UUID
	Rooms     []model.RoomID
	Closed    bool
	Reconnect ReconnectStats
	Router    router.RouterStats
	Registry  room.Stats
}

// session is one live connector. It is replaced wholesale on reconnection.
type session struct {
	id        uuid.UUID
	conn      Connector
	connected atomic.Bool
	armed     atomic.Bool
}

// manager implements the Manager interface.
type manager struct {
	cfg      ManagerConfig
	dial     Dialer
	notifier events.Notifier
	logger   *slog.Logger

	registry    *room.Registry
	router      router.Router
	reconnector *Reconnector

	current atomic.Pointer[session]
	closed  atomic.Bool

	// Serializes Shutdown with publishing a reconnected session
	lifecycleMu sync.Mutex

	// Joined rooms, in join order
	roomsMu sync.Mutex
	rooms   []model.RoomID
}

// NewManager validates cfg and creates a Manager with its first, unconnected session.
func NewManager(cfg ManagerConfig, dial Dialer, notifier events.Notifier, logger *slog.Logger) (Manager, error) {
	if err := cfg.Session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if dial == nil {
		return nil, errors.New("dialer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = events.Discard
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultManagerConfig().ShutdownTimeout
	}

	m := &manager{
		cfg:         cfg,
		dial:        dial,
		notifier:    notifier,
		logger:      logger,
		registry:    room.NewRegistry(logger),
		router:      router.NewRouter(logger),
		reconnector: NewReconnector(cfg.Session.ReconnectionDelay, notifier, logger),
	}
	m.current.Store(m.newSession())

	return m, nil
}

// Run connects and joins, then waits for cancellation.
func (m *manager) Run(ctx context.Context) error {
	if err := m.Connect(ctx); err != nil {
		return err
	}
	if err := m.JoinAll(ctx); err != nil {
		m.abandon(ctx, m.current.Load())
		return err
	}

	s := m.current.Load()
	m.armReconnect(s)

	m.logger.Info("session running",
		"session_id", s.id,
		"rooms", len(m.joinedRooms()),
		"auto_reconnect", m.reconnector.AutoReconnect(),
	)

	<-ctx.Done()

	m.logger.Info("termination requested, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	if err := m.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("shutdown finished with errors", "error", err)
	}

	return nil
}

// Connect establishes the current session.
func (m *manager) Connect(ctx context.Context) error {
	return m.connect(ctx, m.current.Load())
}

// JoinAll joins every configured room on the current session.
func (m *manager) JoinAll(ctx context.Context) error {
	return m.joinAll(ctx, m.current.Load())
}

// Join enters a room on the current session.
func (m *manager) Join(ctx context.Context, room model.RoomID) error {
	return m.join(ctx, m.current.Load(), room)
}

// Part leaves a room. parted is emitted before the leave call, so it fires
// even when the call fails.
func (m *manager) Part(ctx context.Context, room model.RoomID) error {
	s := m.current.Load()

	m.notify(ctx, events.KindParted, s, room)
	m.untrack(room)

	if err := s.conn.Part(ctx, m.domain(), room); err != nil {
		return &PartError{Room: room, Err: err}
	}
	return nil
}

// Send routes a batch through the current session.
func (m *manager) Send(ctx context.Context, target model.Target, messages []string) error {
	return m.router.Send(ctx, m.current.Load().conn, target, messages)
}

// SetTopic sets a room topic. Direct targets are rejected.
func (m *manager) SetTopic(ctx context.Context, target model.Target, topic string) error {
	if target.Kind() != model.TargetGroup {
		return &router.InvalidTargetError{Op: "set topic", Target: target}
	}
	if err := m.current.Load().conn.SetTopic(ctx, target.Room, topic); err != nil {
		return fmt.Errorf("set topic on %s: %w", target.Room, err)
	}
	return nil
}

// ListRooms enumerates rooms under the group domain on the current session.
func (m *manager) ListRooms(ctx context.Context) ([]model.RoomID, error) {
	return m.registry.Resolve(ctx, model.DiscoverAll(), m.domain(), m.current.Load().conn)
}

// Shutdown parts joined rooms in join order, closes the session, and emits
// disconnected. A failed part is logged and does not stop the rest.
func (m *manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}

	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	s := m.current.Load()

	for _, r := range m.joinedRooms() {
		if err := m.Part(ctx, r); err != nil {
			m.logger.Warn("failed to part room during shutdown",
				"room", r,
				"error", err,
			)
		}
	}

	err := s.conn.Shutdown(ctx)
	if err != nil {
		m.logger.Warn("session shutdown failed", "session_id", s.id, "error", err)
		err = fmt.Errorf("shutdown session: %w", err)
	}

	m.notify(ctx, events.KindDisconnected, s, "")
	m.logger.Info("session stopped", "session_id", s.id)

	return err
}

// Reconnect re-creates the session. It returns nil without doing anything
// when another reconnection is in flight.
func (m *manager) Reconnect(ctx context.Context) error {
	_, err := m.reconnector.Do(ctx, m.reestablish)
	return err
}

// MentionFormat renders a user mention.
func (m *manager) MentionFormat(name string) string {
	return "@" + name
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	return ManagerStats{
		SessionID: m.current.Load().id,
		Rooms:     m.joinedRooms(),
		Closed:    m.closed.Load(),
		Reconnect: m.reconnector.Stats(),
		Router:    m.router.Stats(),
		Registry:  m.registry.Stats(),
	}
}

// newSession dials a fresh, unconnected connector.
func (m *manager) newSession() *session {
	return &session{
		id:   uuid.New(),
		conn: m.dial(m.cfg.Session),
	}
}

// armReconnect registers the reconnection handler on s once its connect and
// join sequence has run. It does nothing when automatic reconnection is
// disabled or s is already armed.
func (m *manager) armReconnect(s *session) {
	if !m.reconnector.AutoReconnect() || !s.armed.CompareAndSwap(false, true) {
		return
	}

	m.logger.Info("registering reconnection handler",
		"session_id", s.id,
		"delay", m.reconnector.Delay(),
	)
	s.conn.RegisterReconnectHandler(m.Reconnect, m.reconnector.Delay())
}

// reestablish builds and connects a new session, publishes it, discards the
// previous one, and rejoins rooms on it. A Shutdown that lands while the new
// session is connecting wins: the new session is closed and never published.
func (m *manager) reestablish(ctx context.Context) (uuid.UUID, error) {
	if m.closed.Load() {
		return uuid.Nil, ErrAlreadyClosed
	}

	next := m.newSession()
	if err := m.dialSession(ctx, next); err != nil {
		next.conn.Shutdown(ctx)
		return uuid.Nil, err
	}

	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.closed.Load() {
		m.logger.Info("discarding reconnected session, manager is closed", "session_id", next.id)
		if err := next.conn.Shutdown(ctx); err != nil {
			m.logger.Debug("failed to close discarded session", "session_id", next.id, "error", err)
		}
		return uuid.Nil, ErrAlreadyClosed
	}

	prev := m.current.Swap(next)
	m.notify(ctx, events.KindConnected, next, "")
	m.resetRooms()

	if prev != nil {
		if err := prev.conn.Shutdown(ctx); err != nil {
			m.logger.Debug("failed to close previous session", "session_id", prev.id, "error", err)
		}
	}

	// The new session is live even if a join fails, so it is armed either way.
	err := m.joinAll(ctx, next)
	m.armReconnect(next)

	return next.id, err
}

// abandon closes a session whose startup failed. No event is emitted: the
// session never finished coming up.
func (m *manager) abandon(ctx context.Context, s *session) {
	m.resetRooms()
	if err := s.conn.Shutdown(ctx); err != nil {
		m.logger.Debug("failed to close abandoned session", "session_id", s.id, "error", err)
	}
}

func (m *manager) connect(ctx context.Context, s *session) error {
	if err := m.dialSession(ctx, s); err != nil {
		return err
	}
	m.notify(ctx, events.KindConnected, s, "")
	return nil
}

// dialSession connects s and marks it connected, without emitting events.
func (m *manager) dialSession(ctx context.Context, s *session) error {
	start := time.Now()
	if err := s.conn.Connect(ctx); err != nil {
		return &ConnectionError{Server: m.cfg.Session.Server, Err: err}
	}
	s.connected.Store(true)

	m.logger.Info("session connected",
		"session_id", s.id,
		"server", m.cfg.Session.Server,
		"elapsed", time.Since(start),
	)
	return nil
}

func (m *manager) joinAll(ctx context.Context, s *session) error {
	if !s.connected.Load() {
		return &JoinError{Err: ErrNotConnected}
	}

	rooms, err := m.registry.Resolve(ctx, m.cfg.Session.Rooms, m.domain(), s.conn)
	if err != nil {
		return &JoinError{Err: err}
	}

	for _, r := range rooms {
		if err := m.join(ctx, s, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *manager) join(ctx context.Context, s *session, room model.RoomID) error {
	if !s.connected.Load() {
		return &JoinError{Room: room, Err: ErrNotConnected}
	}
	if err := s.conn.Join(ctx, m.domain(), room); err != nil {
		return &JoinError{Room: room, Err: err}
	}

	m.track(room)
	m.notify(ctx, events.KindJoined, s, room)
	return nil
}

// domain returns the group domain of the current session.
func (m *manager) domain() string {
	return m.cfg.Session.GroupDomain
}

func (m *manager) notify(ctx context.Context, kind events.Kind, s *session, room model.RoomID) {
	m.notifier.Notify(ctx, events.New(kind, s.id, room))
}

func (m *manager) track(room model.RoomID) {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	if !slices.Contains(m.rooms, room) {
		m.rooms = append(m.rooms, room)
	}
}

func (m *manager) untrack(room model.RoomID) {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	m.rooms = slices.DeleteFunc(m.rooms, func(r model.RoomID) bool { return r == room })
}

func (m *manager) resetRooms() {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	m.rooms = nil
}

func (m *manager) joinedRooms() []model.RoomID {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	return slices.Clone(m.rooms)
}
