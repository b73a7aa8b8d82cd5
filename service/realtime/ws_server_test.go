package realtime_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"WProject/service/realtime"
	"WProject/service/realtime/handlers"
	"WProject/tools/security"
)

const testWorkspace = "f47ac10b-58cc-4372-a567-0e02b2c3d479"

func init() {
	gin.SetMode(gin.TestMode)
}

func newGateway(t *testing.T) (*realtime.Server, *httptest.Server, security.Options) {
	t.Helper()
	auth := security.DefaultOptions([]byte("test-secret"))
	s := realtime.NewServer(realtime.Config{GatewayID: "gw-test", Auth: auth})
	handlers.Register(s)

	r := gin.New()
	r.GET("/realtime", s.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return s, srv, auth
}

func dial(t *testing.T, srv *httptest.Server, auth security.Options, userID, userName string) *websocket.Conn {
	t.Helper()
	token, _, err := security.Generate(auth, userID, userName)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime?token=" + token
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, event string, data map[string]any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := c.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// expectEvent reads the next frame and asserts its event name. Per-connection
// delivery is FIFO, so ordering assertions are deterministic.
func expectEvent(t *testing.T, c *websocket.Conn, want string) map[string]any {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read (want %s): %v", want, err)
	}
	var f struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Event != want {
		t.Fatalf("event = %q, want %q (data=%v)", f.Event, want, f.Data)
	}
	return f.Data
}

func waitCond(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRejectsConnectionWithoutValidToken(t *testing.T) {
	s, srv, _ := newGateway(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime"
	for name, u := range map[string]string{
		"no token":  url,
		"bad token": url + "?token=not-a-jwt",
	} {
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			t.Fatalf("%s: handshake unexpectedly succeeded", name)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: status = %v, want 401", name, resp)
		}
	}

	// Wrong secret.
	other := security.DefaultOptions([]byte("other-secret"))
	token, _, _ := security.Generate(other, "user-1", "mallory")
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	if err == nil {
		t.Fatal("foreign-secret token accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %v, want 401", resp)
	}

	if got := s.Registry().Count(testWorkspace); got != 0 {
		t.Fatalf("registry mutated by rejected connections: count = %d", got)
	}
}

func TestCollaborationScenario(t *testing.T) {
	s, srv, auth := newGateway(t)

	// Alice connects and joins.
	c1 := dial(t, srv, auth, "user-1", "alice")
	send(t, c1, "join:workspace", map[string]any{"workspaceId": testWorkspace, "userName": "alice"})

	joined := expectEvent(t, c1, "user:joined")
	if joined["userName"] != "alice" {
		t.Fatalf("join broadcast = %v", joined)
	}
	ack := expectEvent(t, c1, "join:workspace:ack")
	if ack["success"] != true || ack["activeUsers"] != float64(1) {
		t.Fatalf("join ack = %v", ack)
	}

	// Bob connects and joins; alice sees him arrive.
	c2 := dial(t, srv, auth, "user-2", "bob")
	send(t, c2, "join:workspace", map[string]any{"workspaceId": testWorkspace, "userName": "bob"})

	bobJoined := expectEvent(t, c2, "user:joined")
	bobSessionID, _ := bobJoined["sessionId"].(string)
	if bobSessionID == "" {
		t.Fatalf("join broadcast missing sessionId: %v", bobJoined)
	}
	ack = expectEvent(t, c2, "join:workspace:ack")
	if ack["activeUsers"] != float64(2) {
		t.Fatalf("second join ack = %v", ack)
	}
	fromAlice := expectEvent(t, c1, "user:joined")
	if fromAlice["userName"] != "bob" || fromAlice["sessionId"] != bobSessionID {
		t.Fatalf("alice saw %v", fromAlice)
	}

	// Bob edits a file: alice gets the change, bob only the ack. The broadcast
	// is queued before the ack, so the ack arriving first proves exclusion.
	send(t, c2, "file:change", map[string]any{
		"workspaceId": testWorkspace,
		"fileName":    "main.go",
		"changeType":  "update",
		"content":     "package main",
	})
	expectEvent(t, c2, "file:change:ack")
	change := expectEvent(t, c1, "file:changed")
	if change["fileName"] != "main.go" || change["changeType"] != "update" ||
		change["content"] != "package main" || change["userName"] != "bob" {
		t.Fatalf("file change = %v", change)
	}
	if change["timestamp"] == "" {
		t.Fatal("file change missing timestamp")
	}

	// Alice moves her cursor: bob sees it, alice only the ack.
	send(t, c1, "cursor:update", map[string]any{
		"workspaceId": testWorkspace,
		"fileName":    "main.go",
		"line":        10,
		"column":      4,
	})
	expectEvent(t, c1, "cursor:update:ack")
	cursor := expectEvent(t, c2, "cursor:updated")
	pos, _ := cursor["position"].(map[string]any)
	if cursor["userName"] != "alice" || pos["line"] != float64(10) || pos["column"] != float64(4) {
		t.Fatalf("cursor update = %v", cursor)
	}

	// Liveness.
	send(t, c2, "ping", nil)
	pong := expectEvent(t, c2, "pong")
	if pong["timestamp"] == "" {
		t.Fatal("pong missing timestamp")
	}

	// Bob drops without leaving: alice gets the synthetic user:left and the
	// room shrinks to one.
	_ = c2.Close()
	left := expectEvent(t, c1, "user:left")
	if left["sessionId"] != bobSessionID {
		t.Fatalf("user:left = %v, want sessionId %s", left, bobSessionID)
	}
	waitCond(t, "registry did not shrink after disconnect", func() bool {
		return s.Registry().Count(testWorkspace) == 1
	})

	_ = c1.Close()
	waitCond(t, "registry not empty after last disconnect", func() bool {
		return s.Registry().Count(testWorkspace) == 0
	})
}

func TestRejectionsAreScopedToTheOffender(t *testing.T) {
	s, srv, auth := newGateway(t)
	c1 := dial(t, srv, auth, "user-1", "alice")

	// Unknown event name.
	send(t, c1, "workspace:teleport", nil)
	errBody := expectEvent(t, c1, "error")
	if errBody["event"] != "workspace:teleport" {
		t.Fatalf("error frame = %v", errBody)
	}

	// Invalid workspace ID.
	send(t, c1, "join:workspace", map[string]any{"workspaceId": "not-a-uuid", "userName": "alice"})
	errBody = expectEvent(t, c1, "error")
	if errBody["event"] != "join:workspace" {
		t.Fatalf("error frame = %v", errBody)
	}

	// Missing user name.
	send(t, c1, "join:workspace", map[string]any{"workspaceId": testWorkspace})
	expectEvent(t, c1, "error")

	// Bad change type.
	send(t, c1, "join:workspace", map[string]any{"workspaceId": testWorkspace, "userName": "alice"})
	expectEvent(t, c1, "user:joined")
	expectEvent(t, c1, "join:workspace:ack")
	send(t, c1, "file:change", map[string]any{"workspaceId": testWorkspace, "fileName": "a.go", "changeType": "rename"})
	expectEvent(t, c1, "error")

	// The rejected joins left no trace; the valid one did.
	if got := s.Registry().Count(testWorkspace); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}

	// Malformed frame: connection survives and keeps working.
	if err := c1.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectEvent(t, c1, "error")
	send(t, c1, "ping", nil)
	expectEvent(t, c1, "pong")
}

func TestLeaveWorkspace(t *testing.T) {
	s, srv, auth := newGateway(t)
	c1 := dial(t, srv, auth, "user-1", "alice")
	c2 := dial(t, srv, auth, "user-2", "bob")

	send(t, c1, "join:workspace", map[string]any{"workspaceId": testWorkspace, "userName": "alice"})
	expectEvent(t, c1, "user:joined")
	expectEvent(t, c1, "join:workspace:ack")
	send(t, c2, "join:workspace", map[string]any{"workspaceId": testWorkspace, "userName": "bob"})
	expectEvent(t, c2, "user:joined")
	expectEvent(t, c2, "join:workspace:ack")
	expectEvent(t, c1, "user:joined")

	send(t, c2, "leave:workspace", map[string]any{"workspaceId": testWorkspace})
	expectEvent(t, c2, "leave:workspace:ack")
	left := expectEvent(t, c1, "user:left")
	if left["userName"] != "bob" {
		t.Fatalf("user:left = %v", left)
	}
	waitCond(t, "member count did not drop", func() bool {
		return s.Registry().Count(testWorkspace) == 1
	})
}
