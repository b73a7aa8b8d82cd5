package realtime

import "testing"

type stubHandler struct {
	name  string
	calls int
}

func (h *stubHandler) Event() string { return h.name }
func (h *stubHandler) Handle(_ *Context, _ *Session, _ map[string]any) error {
	h.calls++
	return nil
}

func TestDispatcherRouting(t *testing.T) {
	d := NewDispatcher()
	h := &stubHandler{name: "ping"}
	d.Register(h)

	if d.Get("ping") == nil {
		t.Fatal("registered handler not found")
	}
	if d.Get("pong") != nil {
		t.Fatal("unknown event resolved to a handler")
	}

	if err := d.Dispatch(nil, nil, "ping", nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.calls != 1 {
		t.Fatalf("calls = %d, want 1", h.calls)
	}
	if err := d.Dispatch(nil, nil, "pong", nil); err == nil {
		t.Fatal("Dispatch of unknown event should error")
	}
}
