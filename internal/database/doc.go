// Package database opens the PostgreSQL connection pool that backs the
// lifecycle event journal.
package database
