// Package events publishes session lifecycle events.
//
// The connection manager reports five kinds of events:
//   - connected:    the session was established
//   - disconnected: the session was shut down
//   - joined:       a room join succeeded
//   - parted:       a room is being left (emitted before the leave call)
//   - reconnected:  a reconnection sequence completed
//
// Notifiers never fail the lifecycle; implementations that can fail
// (the journal) log their own errors.
package events
