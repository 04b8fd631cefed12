package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/version"
)

// client implements Connector over a WebSocket.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn
	done chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	lastPingAt time.Time
	closed     bool

	// Command/response correlation
	pendingMu sync.Mutex
	pending   map[int64]chan Response
	cmdID     atomic.Int64

	// Reconnection notification
	reconnectMu    sync.Mutex
	reconnectFn    ReconnectFunc
	reconnectDelay time.Duration
	lostOnce       sync.Once
}

// NewClient creates a new WebSocket connector.
func NewClient(cfg ClientConfig, logger *slog.Logger) Connector {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultClientConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = defaults.PingTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}

	return &client{
		cfg:     cfg,
		logger:  logger,
		done:    make(chan struct{}),
		pending: make(map[int64]chan Response),
	}
}

// NewDialer returns a Dialer that builds WebSocket connectors from base,
// filling credentials from the session config. An empty base URL is derived
// from the session server.
func NewDialer(base ClientConfig, logger *slog.Logger) Dialer {
	return func(s SessionConfig) Connector {
		cfg := base
		cfg.Identity = s.Identity
		cfg.Secret = s.Secret
		cfg.Debug = s.Debug
		cfg.IgnoreUnknownUsers = s.IgnoreUnknownUsers
		if cfg.URL == "" {
			cfg.URL = "wss://" + s.Server + "/socket"
		}
		return NewClient(cfg, logger)
	}
}

// Connect dials the server and authenticates.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", version.UserAgent())

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return nil
	})

	go c.readLoop(conn)
	go c.heartbeatLoop(conn)

	auth := AuthParams{
		Identity:           c.cfg.Identity,
		Secret:             c.cfg.Secret,
		IgnoreUnknownUsers: c.cfg.IgnoreUnknownUsers,
		Debug:              c.cfg.Debug,
	}
	if _, err := c.request(ctx, "auth", auth); err != nil {
		c.Shutdown(ctx)
		return fmt.Errorf("authenticate %s: %w", c.cfg.Identity, err)
	}

	c.logger.Debug("websocket connected", "url", c.cfg.URL, "identity", c.cfg.Identity)

	return nil
}

// Shutdown closes the connection. Calling it more than once is a no-op.
func (c *client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	// Signal goroutines to stop
	close(c.done)

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	return conn.Close()
}

// Join enters a room.
func (c *client) Join(ctx context.Context, domain string, room model.RoomID) error {
	_, err := c.request(ctx, "join", RoomParams{Domain: domain, Room: string(room)})
	return err
}

// Part leaves a room.
func (c *client) Part(ctx context.Context, domain string, room model.RoomID) error {
	_, err := c.request(ctx, "part", RoomParams{Domain: domain, Room: string(room)})
	return err
}

// SendDirect sends a batch to a user.
func (c *client) SendDirect(ctx context.Context, user model.UserID, messages []string) error {
	_, err := c.request(ctx, "message_user", DirectParams{User: string(user), Messages: messages})
	return err
}

// SendGroup sends a batch to a room.
func (c *client) SendGroup(ctx context.Context, room model.RoomID, messages []string) error {
	_, err := c.request(ctx, "message_room", GroupParams{Room: string(room), Messages: messages})
	return err
}

// SetTopic sets a room topic.
func (c *client) SetTopic(ctx context.Context, room model.RoomID, topic string) error {
	_, err := c.request(ctx, "set_topic", TopicParams{Room: string(room), Topic: topic})
	return err
}

// ListRooms returns the rooms under domain in server order.
func (c *client) ListRooms(ctx context.Context, domain string) ([]model.RoomID, error) {
	resp, err := c.request(ctx, "list_rooms", ListRoomsParams{Domain: domain})
	if err != nil {
		return nil, err
	}

	var msg ListRoomsMsg
	if err := json.Unmarshal(resp.Msg, &msg); err != nil {
		return nil, fmt.Errorf("decode room list: %w", err)
	}

	rooms := make([]model.RoomID, len(msg.Rooms))
	for i, r := range msg.Rooms {
		rooms[i] = model.RoomID(r)
	}
	return rooms, nil
}

// RegisterReconnectHandler stores fn; it fires at most once per client.
func (c *client) RegisterReconnectHandler(fn ReconnectFunc, delay time.Duration) {
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()
	c.reconnectFn = fn
	c.reconnectDelay = delay
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// request sends a command and waits for its response.
func (c *client) request(ctx context.Context, cmd string, params any) (Response, error) {
	if !c.IsConnected() {
		return Response{}, ErrNotConnected
	}

	id := c.cmdID.Add(1)
	respCh := make(chan Response, 1)

	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	data, err := json.Marshal(Command{ID: id, Cmd: cmd, Params: params})
	if err != nil {
		return Response{}, fmt.Errorf("encode %s: %w", cmd, err)
	}
	if err := c.send(data); err != nil {
		return Response{}, err
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-c.done:
		return Response{}, ErrAlreadyClosed
	case <-timer.C:
		return Response{}, ErrTimeout
	case resp := <-respCh:
		if resp.Type == "error" {
			var errMsg ErrorMsg
			json.Unmarshal(resp.Msg, &errMsg)
			return resp, fmt.Errorf("%s: %s: %s", cmd, errMsg.Code, errMsg.Message)
		}
		return resp, nil
	}
}

// send writes raw bytes to the connection.
func (c *client) send(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.Debug {
		c.logger.Debug("frame sent", "data", string(data))
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames and routes command responses to waiting requests.
func (c *client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Ignore errors after Shutdown() is called
			select {
			case <-c.done:
				return
			default:
			}
			c.connectionLost(err)
			return
		}

		if c.cfg.Debug {
			c.logger.Debug("frame received", "data", string(data))
		}

		if resp, ok := parseResponse(data); ok {
			c.routeResponse(resp)
			continue
		}

		c.logger.Debug("ignoring unsolicited frame", "bytes", len(data))
	}
}

// heartbeatLoop pings the server and detects stale connections.
func (c *client) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
			c.writeMu.Unlock()

			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				c.connectionLost(ErrStaleConnection)
				conn.Close()
				return
			}
		}
	}
}

// connectionLost marks the client disconnected and schedules the
// reconnection handler, if one is registered.
func (c *client) connectionLost(cause error) {
	c.mu.Lock()
	c.connected = false
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}

	c.lostOnce.Do(func() {
		c.reconnectMu.Lock()
		fn, delay := c.reconnectFn, c.reconnectDelay
		c.reconnectMu.Unlock()

		c.logger.Warn("connection lost",
			"url", c.cfg.URL,
			"error", cause,
			"reconnect", fn != nil,
		)

		if fn != nil {
			go c.fireReconnect(fn, delay)
		}
	})
}

// fireReconnect waits delay and then invokes fn, repeating every delay while
// fn fails. It stops once fn succeeds, the manager is closed, or the client
// is shut down.
func (c *client) fireReconnect(fn ReconnectFunc, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return
		case <-timer.C:
		}

		err := fn(context.Background())
		if err == nil {
			return
		}
		if errors.Is(err, ErrAlreadyClosed) {
			c.logger.Debug("reconnection handler stopped", "error", err)
			return
		}

		c.logger.Warn("reconnection handler failed, retrying",
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)
		timer.Reset(delay)
	}
}

// routeResponse sends a response to the waiting request.
func (c *client) routeResponse(resp Response) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

// parseResponse attempts to parse a frame as a command response.
func parseResponse(data []byte) (Response, bool) {
	// Quick check for response markers
	if !bytes.Contains(data, []byte(`"id":`)) {
		return Response{}, false
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, false
	}

	switch resp.Type {
	case "ok", "error":
		return resp, true
	}

	return Response{}, false
}
