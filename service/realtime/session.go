package realtime

import (
	"sync"

	"WProject/tools/security"
)

// Transport is the write-only capability for one connection: a buffered queue
// consumed by a single writer goroutine. Broadcast paths never touch the
// websocket directly.
type Transport struct {
	ConnID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewTransport(connID string, queueSize int) *Transport {
	return &Transport{ConnID: connID, send: make(chan []byte, queueSize)}
}

// TrySend queues a payload without blocking. Returns false when the transport
// is mid-teardown or the client is too slow to drain its queue; the caller
// treats both as a skipped recipient, never as a broadcast failure.
func (t *Transport) TrySend(payload []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	select {
	case t.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops the queue; the writer goroutine drains and shuts the socket.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.send)
	}
}

func (t *Transport) Out() <-chan []byte { return t.send }

// Session is the per-connection record: identity, display name, and (via the
// registry) workspace memberships. It deliberately carries no socket handle;
// the Transport owns all writes.
type Session struct {
	ID        string
	Principal *security.Principal

	mu       sync.Mutex
	userName string
}

func NewSession(id string, p *security.Principal) *Session {
	s := &Session{ID: id, Principal: p}
	if p != nil {
		s.userName = p.UserName
	}
	return s
}

// SetUserName records the display name announced at join time.
func (s *Session) SetUserName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.userName = name
	}
}

func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userName
}
