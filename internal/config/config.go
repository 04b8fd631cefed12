package config

import (
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// Config is the root configuration for a chatlink instance.
type Config struct {
	Session         SessionConfig   `yaml:"session"`
	Connector       ConnectorConfig `yaml:"connector"`
	Journal         DBConfig        `yaml:"journal"`
	Health          HealthConfig    `yaml:"health"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
}

// SessionConfig holds chat session settings.
type SessionConfig struct {
	Identity           string         `yaml:"identity"`
	Secret             string         `yaml:"secret"`
	Server             string         `yaml:"server"`
	Debug              bool           `yaml:"debug"`
	Rooms              model.RoomSpec `yaml:"rooms"`
	GroupDomain        string         `yaml:"group_domain"`
	IgnoreUnknownUsers bool           `yaml:"ignore_unknown_users"`
	ReconnectionDelay  int            `yaml:"reconnection_delay"` // Seconds; 0 disables auto-reconnect
}

// Delay returns the reconnection delay as a duration.
func (s SessionConfig) Delay() time.Duration {
	return time.Duration(s.ReconnectionDelay) * time.Second
}

// ConnectorConfig holds WebSocket connector settings.
type ConnectorConfig struct {
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// HealthConfig holds the health endpoint settings. Port 0 disables it.
type HealthConfig struct {
	Port int `yaml:"port"`
}
