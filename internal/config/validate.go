package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Session.Identity == "" {
		return errors.New("session.identity is required")
	}
	if c.Session.Secret == "" {
		return errors.New("session.secret is required")
	}
	if c.Session.ReconnectionDelay < 0 {
		return fmt.Errorf("session.reconnection_delay must be >= 0, got %d", c.Session.ReconnectionDelay)
	}

	if c.Connector.RequestTimeout < 0 {
		return errors.New("connector.request_timeout must be >= 0")
	}
	if c.Connector.PingTimeout < 0 {
		return errors.New("connector.ping_timeout must be >= 0")
	}
	if c.Connector.WriteTimeout < 0 {
		return errors.New("connector.write_timeout must be >= 0")
	}

	if c.Journal.Enabled() {
		if err := c.Journal.validate("journal"); err != nil {
			return err
		}
	}

	if c.Health.Port < 0 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 0 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
