package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/chatlink/internal/config"
)

// ApplicationName is reported to the server for every journal connection.
const ApplicationName = "chatlink"

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode credentials to handle special characters
	escapedUser := url.QueryEscape(cfg.User)
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	port := cfg.Port
	if port == 0 {
		port = config.DefaultDBPort
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&application_name=%s",
		escapedUser,
		escapedPassword,
		cfg.Host,
		port,
		cfg.Name,
		sslMode,
		ApplicationName,
	)
}
