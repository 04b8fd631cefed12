// Package router routes outbound message batches to the direct or group send
// path of a session, based on the target kind.
//
// The batch is handed to the session unchanged: the router never reorders,
// splits, or deduplicates messages.
package router
