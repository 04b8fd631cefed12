// Package health serves the HTTP health endpoint for a running chatlink session.
package health
