// Package connection implements the session lifecycle.
//
// The Manager:
//   - Owns the live session (a Connector plus a session ID)
//   - Connects, joins the configured rooms, and parts them on shutdown
//   - Routes outbound batches through the Message Router
//   - Publishes lifecycle events (connected, joined, parted, disconnected, reconnected)
//
// The Reconnector guards session re-establishment. It uses a non-blocking
// try-acquire, so at most one reconnection runs at a time and losing callers
// return immediately instead of queueing.
//
// Client is the default Connector: a JSON command protocol over a WebSocket.
package connection
