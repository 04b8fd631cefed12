package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrTimeout         = errors.New("operation timeout")
	ErrAlreadyClosed   = errors.New("already closed")
)

// ConnectionError reports that a session could not be established.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// JoinError reports a failed room join. Room is empty when the room list
// itself could not be resolved.
type JoinError struct {
	Room model.RoomID
	Err  error
}

func (e *JoinError) Error() string {
	if e.Room == "" {
		return fmt.Sprintf("join rooms: %v", e.Err)
	}
	return fmt.Sprintf("join %s: %v", e.Room, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

// PartError reports a failed room leave.
type PartError struct {
	Room model.RoomID
	Err  error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("part %s: %v", e.Room, e.Err)
}

func (e *PartError) Unwrap() error { return e.Err }

// ReconnectFunc re-establishes a session. Connectors call it when they detect
// connection loss.
type ReconnectFunc func(ctx context.Context) error

// Connector is the protocol collaborator behind a session.
type Connector interface {
	// Connect opens the connection and authenticates.
	Connect(ctx context.Context) error

	// Shutdown closes the connection.
	Shutdown(ctx context.Context) error

	// Join enters room under the group domain.
	Join(ctx context.Context, domain string, room model.RoomID) error

	// Part leaves room under the group domain.
	Part(ctx context.Context, domain string, room model.RoomID) error

	// SendDirect delivers a batch to a single user.
	SendDirect(ctx context.Context, user model.UserID, messages []string) error

	// SendGroup delivers a batch to a room.
	SendGroup(ctx context.Context, room model.RoomID, messages []string) error

	// SetTopic changes a room's topic.
	SetTopic(ctx context.Context, room model.RoomID, topic string) error

	// ListRooms enumerates the rooms under domain.
	ListRooms(ctx context.Context, domain string) ([]model.RoomID, error)

	// RegisterReconnectHandler arranges for fn to be called, delay after the
	// connection is lost.
	RegisterReconnectHandler(fn ReconnectFunc, delay time.Duration)
}

// Dialer builds a fresh, unconnected Connector for a session.
type Dialer func(cfg SessionConfig) Connector

// SessionConfig is the immutable configuration of a session.
type SessionConfig struct {
	Identity           string         // Credential identifier (e.g., bot@chat.example.com)
	Secret             string         // Credential secret
	Server             string         // Connection target host
	GroupDomain        string         // Namespace for room resolution (e.g., conf.example.com)
	Debug              bool           // Verbose connector logging
	IgnoreUnknownUsers bool           // Passed through to the connector
	Rooms              model.RoomSpec // Rooms to join after connecting
	ReconnectionDelay  time.Duration  // 0 disables automatic reconnection
}

// Validate checks required fields.
func (c SessionConfig) Validate() error {
	if c.Identity == "" {
		return errors.New("session identity is required")
	}
	if c.Secret == "" {
		return errors.New("session secret is required")
	}
	if c.ReconnectionDelay < 0 {
		return fmt.Errorf("reconnection delay must be >= 0, got %s", c.ReconnectionDelay)
	}
	return nil
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Session         SessionConfig
	ShutdownTimeout time.Duration // Bound on Shutdown after Run is cancelled
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ShutdownTimeout: 30 * time.Second,
	}
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL                string        // WebSocket URL (e.g., wss://chat.example.com/socket)
	Identity           string        // Sent in the auth command
	Secret             string        // Sent in the auth command
	Debug              bool          // Log every frame
	IgnoreUnknownUsers bool          // Sent in the auth command
	RequestTimeout     time.Duration // Max wait for a command response
	PingTimeout        time.Duration // Max time without ping before considering connection stale
	WriteTimeout       time.Duration // Write deadline for sends
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout: 10 * time.Second,
		PingTimeout:    60 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// -----------------------------------------------------------------------------
// Wire Types
// -----------------------------------------------------------------------------

// Command is a command sent to the server.
type Command struct {
	ID     int64  `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params,omitempty"`
}

// Response is a command response from the server.
type Response struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"` // "ok" or "error"
	Msg  json.RawMessage `json:"msg,omitempty"`
}

// ErrorMsg is the message content for an "error" response.
type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthParams are parameters for the auth command.
type AuthParams struct {
	Identity           string `json:"identity"`
	Secret             string `json:"secret"`
	IgnoreUnknownUsers bool   `json:"ignore_unknown_users,omitempty"`
	Debug              bool   `json:"debug,omitempty"`
}

// RoomParams are parameters for join and part.
type RoomParams struct {
	Domain string `json:"domain"`
	Room   string `json:"room"`
}

// DirectParams are parameters for message_user.
type DirectParams struct {
	User     string   `json:"user"`
	Messages []string `json:"messages"`
}

// GroupParams are parameters for message_room.
type GroupParams struct {
	Room     string   `json:"room"`
	Messages []string `json:"messages"`
}

// TopicParams are parameters for set_topic.
type TopicParams struct {
	Room  string `json:"room"`
	Topic string `json:"topic"`
}

// ListRoomsParams are parameters for list_rooms.
type ListRoomsParams struct {
	Domain string `json:"domain"`
}

// ListRoomsMsg is the message content for a list_rooms response.
type ListRoomsMsg struct {
	Rooms []string `json:"rooms"`
}
