package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/rickgao/chatlink/internal/connection"
)

// recordingServer answers every command with ok and records what it received.
type recordingServer struct {
	rooms []string

	mu       sync.Mutex
	commands []string
	params   map[string]json.RawMessage
}

func (s *recordingServer) handle(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd struct {
			ID     int64           `json:"id"`
			Cmd    string          `json:"cmd"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		s.mu.Lock()
		s.commands = append(s.commands, cmd.Cmd)
		if s.params == nil {
			s.params = make(map[string]json.RawMessage)
		}
		s.params[cmd.Cmd] = cmd.Params
		s.mu.Unlock()

		resp := connection.Response{ID: cmd.ID, Type: "ok"}
		if cmd.Cmd == "list_rooms" {
			resp.Msg, _ = json.Marshal(connection.ListRoomsMsg{Rooms: s.rooms})
		}
		out, _ := json.Marshal(resp)
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

func (s *recordingServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func startChatServer(t *testing.T, srv *recordingServer) string {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		srv.handle(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func writeConfig(t *testing.T, url string) string {
	t.Helper()
	yaml := fmt.Sprintf(`
session:
  identity: bot@chat.example.com
  secret: secret
  rooms: all
  reconnection_delay: 5
connector:
  url: %s
  request_timeout: 2s
shutdown_timeout: 5s
`, url)
	path := filepath.Join(t.TempDir(), "chatlink.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(context.Background(), append([]string{"chatlinkd", "--env-file="}, args...))
	return out.String(), err
}

func TestSendCommand(t *testing.T) {
	srv := &recordingServer{}
	path := writeConfig(t, startChatServer(t, srv))

	if _, err := runApp(t, "--config", path, "send", "--to", "room:ops", "hello", "world"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// One-shot sessions never join: auth, one batch, nothing else.
	got := srv.received()
	want := []string{"auth", "message_room"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("commands = %v, want %v", got, want)
	}

	var p connection.GroupParams
	srv.mu.Lock()
	json.Unmarshal(srv.params["message_room"], &p)
	srv.mu.Unlock()
	if p.Room != "ops" {
		t.Errorf("room = %q, want %q", p.Room, "ops")
	}
	if len(p.Messages) != 2 || p.Messages[0] != "hello" || p.Messages[1] != "world" {
		t.Errorf("messages = %v, want [hello world]", p.Messages)
	}
}

func TestSendCommand_Errors(t *testing.T) {
	srv := &recordingServer{}
	path := writeConfig(t, startChatServer(t, srv))

	tests := []struct {
		name string
		args []string
	}{
		{name: "bad target", args: []string{"--config", path, "send", "--to", "ops", "hi"}},
		{name: "no messages", args: []string{"--config", path, "send", "--to", "user:alice"}},
		{name: "missing config", args: []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "send", "--to", "user:alice", "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runApp(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}

	if got := srv.received(); len(got) != 0 {
		t.Errorf("server received %v, want nothing", got)
	}
}

func TestRoomsCommand(t *testing.T) {
	srv := &recordingServer{rooms: []string{"lobby", "ops"}}
	path := writeConfig(t, startChatServer(t, srv))

	out, err := runApp(t, "--config", path, "rooms")
	if err != nil {
		t.Fatalf("rooms failed: %v", err)
	}

	if out != "lobby\nops\n" {
		t.Errorf("output = %q, want %q", out, "lobby\nops\n")
	}

	var p connection.ListRoomsParams
	srv.mu.Lock()
	json.Unmarshal(srv.params["list_rooms"], &p)
	srv.mu.Unlock()
	if p.Domain != "conf.example.com" {
		t.Errorf("list_rooms domain = %q, want %q", p.Domain, "conf.example.com")
	}
}
