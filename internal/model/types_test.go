package model

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestTargets(t *testing.T) {
	t.Run("Direct", func(t *testing.T) {
		tgt := Direct("alice")

		if tgt.Kind() != TargetDirect {
			t.Errorf("Kind() = %v, want %v", tgt.Kind(), TargetDirect)
		}
		if !tgt.IsDirect() {
			t.Error("IsDirect() = false, want true")
		}
		if tgt.User != "alice" {
			t.Errorf("User = %q, want %q", tgt.User, "alice")
		}
		if tgt.String() != "user:alice" {
			t.Errorf("String() = %q, want %q", tgt.String(), "user:alice")
		}
	})

	t.Run("Group", func(t *testing.T) {
		tgt := Group("ops")

		if tgt.Kind() != TargetGroup {
			t.Errorf("Kind() = %v, want %v", tgt.Kind(), TargetGroup)
		}
		if tgt.IsDirect() {
			t.Error("IsDirect() = true, want false")
		}
		if tgt.Room != "ops" {
			t.Errorf("Room = %q, want %q", tgt.Room, "ops")
		}
	})

	t.Run("Zero", func(t *testing.T) {
		var tgt Target
		if tgt.Kind() != TargetUnknown {
			t.Errorf("Kind() = %v, want %v", tgt.Kind(), TargetUnknown)
		}
	})
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "user:alice", want: Direct("alice")},
		{in: "room:ops", want: Group("ops")},
		{in: "room:a:b", want: Group("a:b")},
		{in: "ops", wantErr: true},
		{in: "room:", wantErr: true},
		{in: "channel:ops", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTarget(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoomSpec_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    RoomSpec
		wantErr bool
	}{
		{name: "all sentinel", doc: "rooms: all", want: DiscoverAll()},
		{name: "single scalar", doc: "rooms: ops", want: ExplicitRooms("ops")},
		{name: "sequence", doc: "rooms: [ops, dev]", want: ExplicitRooms("ops", "dev")},
		{name: "empty", doc: "rooms: ''", want: RoomSpec{}},
		{name: "mapping", doc: "rooms: {a: b}", wantErr: true},
		{name: "empty entry", doc: "rooms: [ops, '']", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Rooms RoomSpec `yaml:"rooms"`
			}
			err := yaml.Unmarshal([]byte(tt.doc), &out)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", out.Rooms)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Rooms.All != tt.want.All {
				t.Errorf("All = %v, want %v", out.Rooms.All, tt.want.All)
			}
			if out.Rooms.String() != tt.want.String() {
				t.Errorf("Rooms = %q, want %q", out.Rooms.String(), tt.want.String())
			}
		})
	}
}

func TestRoomSpec_IsEmpty(t *testing.T) {
	if !(RoomSpec{}).IsEmpty() {
		t.Error("zero RoomSpec should be empty")
	}
	if DiscoverAll().IsEmpty() {
		t.Error("DiscoverAll should not be empty")
	}
	if ExplicitRooms("ops").IsEmpty() {
		t.Error("ExplicitRooms(ops) should not be empty")
	}
}
