package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoomID names a group channel (e.g., "ops").
type RoomID string

// UserID names a user reachable by direct message (e.g., "alice@chat.example.com").
type UserID string

// AllRooms is the configuration sentinel meaning "join every room the server lists".
const AllRooms = "all"

// -----------------------------------------------------------------------------
// Room Specification
// -----------------------------------------------------------------------------

// RoomSpec selects which rooms a session joins.
//
// When All is set, Rooms is ignored and the room list is fetched from the
// server at join time.
type RoomSpec struct {
	All   bool
	Rooms []RoomID
}

// ExplicitRooms returns a RoomSpec for a fixed, ordered room list.
func ExplicitRooms(rooms ...RoomID) RoomSpec {
	return RoomSpec{Rooms: rooms}
}

// DiscoverAll returns a RoomSpec that resolves to every listed room.
func DiscoverAll() RoomSpec {
	return RoomSpec{All: true}
}

// IsEmpty reports whether s selects no rooms at all.
func (s RoomSpec) IsEmpty() bool {
	return !s.All && len(s.Rooms) == 0
}

// String returns "all" or the comma-separated room list.
func (s RoomSpec) String() string {
	if s.All {
		return AllRooms
	}
	parts := make([]string, len(s.Rooms))
	for i, r := range s.Rooms {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// UnmarshalYAML accepts the "all" sentinel, a single room scalar, or a
// sequence of rooms.
func (s *RoomSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		switch v {
		case "":
			*s = RoomSpec{}
		case AllRooms:
			*s = DiscoverAll()
		default:
			*s = ExplicitRooms(RoomID(v))
		}
		return nil

	case yaml.SequenceNode:
		var rooms []string
		if err := node.Decode(&rooms); err != nil {
			return err
		}
		out := make([]RoomID, 0, len(rooms))
		for _, r := range rooms {
			if r == "" {
				return fmt.Errorf("line %d: empty room name", node.Line)
			}
			out = append(out, RoomID(r))
		}
		*s = RoomSpec{Rooms: out}
		return nil
	}

	return fmt.Errorf("line %d: rooms must be %q, a room name, or a list of rooms", node.Line, AllRooms)
}

// -----------------------------------------------------------------------------
// Targets
// -----------------------------------------------------------------------------

// TargetKind discriminates a Target.
type TargetKind int

const (
	TargetUnknown TargetKind = iota
	TargetDirect
	TargetGroup
)

func (k TargetKind) String() string {
	switch k {
	case TargetDirect:
		return "direct"
	case TargetGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Target is the destination of an outbound message batch.
// Exactly one of User or Room is meaningful, selected by Kind.
type Target struct {
	kind TargetKind
	User UserID
	Room RoomID
}

// Direct returns a Target addressing a single user.
func Direct(user UserID) Target {
	return Target{kind: TargetDirect, User: user}
}

// Group returns a Target addressing a group channel.
func Group(room RoomID) Target {
	return Target{kind: TargetGroup, Room: room}
}

// Kind returns the target kind. The zero Target is TargetUnknown.
func (t Target) Kind() TargetKind {
	return t.kind
}

// IsDirect reports whether the target is a direct message.
func (t Target) IsDirect() bool {
	return t.kind == TargetDirect
}

func (t Target) String() string {
	switch t.kind {
	case TargetDirect:
		return "user:" + string(t.User)
	case TargetGroup:
		return "room:" + string(t.Room)
	default:
		return "unknown"
	}
}

// ParseTarget parses "user:<id>" or "room:<id>".
func ParseTarget(s string) (Target, error) {
	prefix, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Target{}, fmt.Errorf("invalid target %q: want user:<id> or room:<id>", s)
	}
	switch prefix {
	case "user":
		return Direct(UserID(id)), nil
	case "room":
		return Group(RoomID(id)), nil
	}
	return Target{}, fmt.Errorf("invalid target %q: unknown kind %q", s, prefix)
}
