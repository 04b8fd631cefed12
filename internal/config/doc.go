// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// The session.rooms key accepts "all", a single room name, or a list of rooms.
package config
