package realtime

import (
	"encoding/json"
	"testing"
)

func tryRecv(t *Transport) ([]byte, bool) {
	select {
	case p, ok := <-t.Out():
		return p, ok
	default:
		return nil, false
	}
}

func TestBroadcastExcludesOriginator(t *testing.T) {
	reg := NewPresenceRegistry()
	b := NewBroadcaster(reg)

	t1 := NewTransport("s1", 4)
	t2 := NewTransport("s2", 4)
	t3 := NewTransport("s3", 4)
	for id, tr := range map[string]*Transport{"s1": t1, "s2": t2, "s3": t3} {
		reg.Join("w1", id)
		b.Attach(id, tr)
	}

	ev := FileChanged{SessionID: "s2", WorkspaceID: "w1", FileName: "a.go", ChangeType: ChangeCreate}
	b.Broadcast("w1", ev, "s2")

	if _, ok := tryRecv(t1); !ok {
		t.Fatal("s1 should receive the event")
	}
	if _, ok := tryRecv(t3); !ok {
		t.Fatal("s3 should receive the event")
	}
	if p, ok := tryRecv(t2); ok {
		t.Fatalf("originator s2 received its own event: %s", p)
	}
}

func TestBroadcastPayloadIsEventFrame(t *testing.T) {
	reg := NewPresenceRegistry()
	b := NewBroadcaster(reg)
	tr := NewTransport("s1", 1)
	reg.Join("w1", "s1")
	b.Attach("s1", tr)

	ev := UserJoined{SessionID: "s9", UserName: "bob", WorkspaceID: "w1", Timestamp: "t"}
	b.Broadcast("w1", ev, "")

	p, ok := tryRecv(tr)
	if !ok {
		t.Fatal("no payload delivered")
	}
	var f struct {
		Event string     `json:"event"`
		Data  UserJoined `json:"data"`
	}
	if err := json.Unmarshal(p, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Event != EventUserJoined || f.Data != ev {
		t.Fatalf("frame = %+v", f)
	}
}

func TestBroadcastSkipsSlowAndClosedTransports(t *testing.T) {
	reg := NewPresenceRegistry()
	b := NewBroadcaster(reg)

	slow := NewTransport("slow", 1)
	slow.TrySend([]byte("backlog")) // queue full
	closed := NewTransport("closed", 4)
	closed.Close()
	ok := NewTransport("ok", 4)

	for _, id := range []string{"slow", "closed", "ok", "ghost"} {
		reg.Join("w1", id) // ghost has no transport attached
	}
	b.Attach("slow", slow)
	b.Attach("closed", closed)
	b.Attach("ok", ok)

	b.Broadcast("w1", UserLeft{SessionID: "x", WorkspaceID: "w1"}, "")

	if _, got := tryRecv(ok); !got {
		t.Fatal("healthy transport should still receive")
	}
}

func TestSendTargetsOneSession(t *testing.T) {
	reg := NewPresenceRegistry()
	b := NewBroadcaster(reg)
	t1 := NewTransport("s1", 4)
	t2 := NewTransport("s2", 4)
	b.Attach("s1", t1)
	b.Attach("s2", t2)

	b.Send("s1", EventPong, map[string]string{"timestamp": "t"})
	b.Send("missing", EventPong, nil) // no-op

	if _, ok := tryRecv(t1); !ok {
		t.Fatal("s1 should receive the frame")
	}
	if _, ok := tryRecv(t2); ok {
		t.Fatal("s2 should not receive the frame")
	}
}

func TestTransportCloseIsIdempotent(t *testing.T) {
	tr := NewTransport("s1", 1)
	tr.Close()
	tr.Close()
	if tr.TrySend([]byte("x")) {
		t.Fatal("TrySend after Close should report false")
	}
	if _, open := <-tr.Out(); open {
		t.Fatal("queue should be closed")
	}
}
