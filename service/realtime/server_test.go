package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// memoryHub stands in for the shared redis bus: every publish is delivered to
// every connected bus, the publisher's own included, exactly like a pub/sub
// channel would.
type memoryHub struct {
	mu    sync.Mutex
	buses []*memoryBus
}

func (h *memoryHub) attach(b *memoryBus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buses = append(h.buses, b)
}

func (h *memoryHub) deliver(env *Envelope) {
	ev, err := env.DecodeEvent()
	if err != nil {
		return
	}
	h.mu.Lock()
	buses := append([]*memoryBus(nil), h.buses...)
	h.mu.Unlock()
	for _, b := range buses {
		b.receive(env, ev)
	}
}

type memoryBus struct {
	hub    *memoryHub
	origin string

	mu        sync.Mutex
	wildcard  []BusHandler
	published []*Envelope
}

func newMemoryBus(hub *memoryHub, origin string) *memoryBus {
	b := &memoryBus{hub: hub, origin: origin}
	hub.attach(b)
	return b
}

func (b *memoryBus) Publish(_ context.Context, ev Event) error {
	env, err := NewEnvelope(b.origin, ev)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.published = append(b.published, env)
	b.mu.Unlock()
	b.hub.deliver(env)
	return nil
}

func (b *memoryBus) Subscribe(h BusHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, h)
}

func (b *memoryBus) Register(string, BusHandler) {}
func (b *memoryBus) Deregister(string)           {}
func (b *memoryBus) Close() error                { return nil }

func (b *memoryBus) receive(env *Envelope, ev Event) {
	b.mu.Lock()
	handlers := append([]BusHandler(nil), b.wildcard...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(env, ev)
	}
}

func (b *memoryBus) publishedEvents() []*Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Envelope(nil), b.published...)
}

// twoGateways wires two servers onto one hub, each with a single member in
// workspace w1 backed by an inspectable transport.
func twoGateways(t *testing.T) (a, b *Server, busA, busB *memoryBus, ta, tb *Transport) {
	t.Helper()
	hub := &memoryHub{}
	busA = newMemoryBus(hub, "gw-a")
	busB = newMemoryBus(hub, "gw-b")
	a = NewServer(Config{GatewayID: "gw-a", Bus: busA})
	b = NewServer(Config{GatewayID: "gw-b", Bus: busB})

	ta = NewTransport("alice", 8)
	a.Registry().Join("w1", "alice")
	a.Caster().Attach("alice", ta)

	tb = NewTransport("bob", 8)
	b.Registry().Join("w1", "bob")
	b.Caster().Attach("bob", tb)
	return
}

func decodeFrame(t *testing.T, raw []byte) (string, json.RawMessage) {
	t.Helper()
	var f struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return f.Event, f.Data
}

func TestBusEventReachesRemoteGatewayIntact(t *testing.T) {
	a, _, _, _, ta, tb := twoGateways(t)

	content := "line one"
	ev := FileChanged{
		SessionID:   "alice",
		UserName:    "alice",
		WorkspaceID: "w1",
		FileName:    "main.go",
		ChangeType:  ChangeUpdate,
		Content:     &content,
		Timestamp:   Now(),
	}
	a.Caster().Broadcast("w1", ev, "alice")
	a.PublishEvent(context.Background(), ev)

	raw, ok := tryRecv(tb)
	if !ok {
		t.Fatal("remote member received nothing")
	}
	name, data := decodeFrame(t, raw)
	if name != EventFileChanged {
		t.Fatalf("event = %q, want %q", name, EventFileChanged)
	}
	var got FileChanged
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if got.FileName != ev.FileName || got.ChangeType != ev.ChangeType ||
		got.Content == nil || *got.Content != content || got.SessionID != "alice" {
		t.Fatalf("remote copy differs: %+v", got)
	}

	// The originator is excluded locally and its own bus echo is dropped.
	if p, ok := tryRecv(ta); ok {
		t.Fatalf("originating member received %s", p)
	}
}

func TestReceivingGatewayNeverRepublishes(t *testing.T) {
	a, _, _, busB, _, tb := twoGateways(t)

	ev := UserJoined{SessionID: "alice", UserName: "alice", WorkspaceID: "w1", Timestamp: Now()}
	a.Caster().Broadcast("w1", ev, "")
	a.PublishEvent(context.Background(), ev)

	if _, ok := tryRecv(tb); !ok {
		t.Fatal("remote member should see the join")
	}
	if pubs := busB.publishedEvents(); len(pubs) != 0 {
		t.Fatalf("receiving gateway published %d envelope(s), want 0", len(pubs))
	}
}

func TestOwnEchoIsDroppedOnce(t *testing.T) {
	a, _, _, _, ta, _ := twoGateways(t)

	ev := UserJoined{SessionID: "other", UserName: "carol", WorkspaceID: "w1", Timestamp: Now()}
	// A handler broadcasts locally then publishes; the hub echoes the publish
	// straight back to gw-a. Without the origin check alice would see it twice.
	a.Caster().Broadcast("w1", ev, "")
	a.PublishEvent(context.Background(), ev)

	if _, ok := tryRecv(ta); !ok {
		t.Fatal("local member should see the broadcast")
	}
	if p, ok := tryRecv(ta); ok {
		t.Fatalf("local member saw a duplicate: %s", p)
	}
}

func TestDisconnectEmitsUserLeftEverywhere(t *testing.T) {
	a, _, busA, _, _, tb := twoGateways(t)

	sess := NewSession("alice", nil)
	sess.SetUserName("alice")
	a.addSession(sess)
	a.Registry().Join("w2", "alice")

	a.Disconnect(sess)

	if got := a.Registry().Count("w1"); got != 0 {
		t.Fatalf("Count(w1) = %d, want 0", got)
	}
	if got := a.Registry().Count("w2"); got != 0 {
		t.Fatalf("Count(w2) = %d, want 0", got)
	}
	if a.Session("alice") != nil {
		t.Fatal("session table still holds the session")
	}

	pubs := busA.publishedEvents()
	if len(pubs) != 2 {
		t.Fatalf("published %d envelope(s), want 2 (one per workspace)", len(pubs))
	}
	workspaces := map[string]bool{}
	for _, env := range pubs {
		if env.Event != EventUserLeft {
			t.Fatalf("published event = %q, want %q", env.Event, EventUserLeft)
		}
		var left UserLeft
		if err := json.Unmarshal(env.Data, &left); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if left.UserName != "alice" {
			t.Fatalf("userName = %q", left.UserName)
		}
		workspaces[left.WorkspaceID] = true
	}
	if !workspaces["w1"] || !workspaces["w2"] {
		t.Fatalf("workspaces = %v, want w1 and w2", workspaces)
	}

	// Bob shares only w1, so exactly one user:left lands on his transport.
	raw, ok := tryRecv(tb)
	if !ok {
		t.Fatal("remote member missed the synthetic leave")
	}
	if name, _ := decodeFrame(t, raw); name != EventUserLeft {
		t.Fatalf("event = %q, want %q", name, EventUserLeft)
	}
	if _, ok := tryRecv(tb); ok {
		t.Fatal("remote member got a leave for a workspace it is not in")
	}
}

func TestPublishEventWithoutBusIsNoop(t *testing.T) {
	s := NewServer(Config{GatewayID: "gw-solo"})
	s.PublishEvent(context.Background(), UserJoined{SessionID: "s1", WorkspaceID: "w1"})
}
