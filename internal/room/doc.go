// Package room resolves the configured room set into concrete room identifiers.
//
// An explicit list resolves to itself. The "all" sentinel is resolved live
// against the server every time Resolve is called; results are never cached,
// so a reconnected session always sees the current room list.
package room
