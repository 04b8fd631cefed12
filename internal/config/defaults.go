package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServer          = "chat.example.com"
	DefaultGroupDomain     = "conf.example.com"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultPingTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultShutdownTimeout = 30 * time.Second
)

func (c *Config) applyDefaults() {
	// Session defaults
	if c.Session.Server == "" {
		c.Session.Server = DefaultServer
	}
	if c.Session.GroupDomain == "" {
		c.Session.GroupDomain = DefaultGroupDomain
	}

	// Connector defaults
	if c.Connector.URL == "" {
		c.Connector.URL = "wss://" + c.Session.Server + "/socket"
	}
	if c.Connector.RequestTimeout == 0 {
		c.Connector.RequestTimeout = DefaultRequestTimeout
	}
	if c.Connector.PingTimeout == 0 {
		c.Connector.PingTimeout = DefaultPingTimeout
	}
	if c.Connector.WriteTimeout == 0 {
		c.Connector.WriteTimeout = DefaultWriteTimeout
	}

	// Journal defaults only when a journal is configured
	if c.Journal.Enabled() {
		applyDBDefaults(&c.Journal)
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
