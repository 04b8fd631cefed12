// Package model defines shared data types used across chatlink.
//
// Conventions:
//   - Rooms and users: opaque string newtypes, compared by value
//   - Targets: a tagged union of a direct (user) or group (room) destination
//   - Room specs: either the "all" sentinel or an explicit ordered list
package model
