package realtime

import (
	"context"
	"sync"
	"time"

	"WProject/logger"
	"WProject/tools/security"
)

type Config struct {
	// GatewayID is this process's fleet-unique name; it becomes the origin
	// stamp on published envelopes.
	GatewayID string
	Auth      security.Options
	// Bus may be nil (single-process mode); publishes become no-ops.
	Bus Bus
}

// Server orchestrates the gateway: it owns the presence registry, the local
// broadcaster, the session table and the bus hookup. One Server per process.
type Server struct {
	gatewayID string
	auth      security.Options
	registry  *PresenceRegistry
	caster    *Broadcaster
	bus       Bus
	disp      *Dispatcher

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewServer(cfg Config) *Server {
	registry := NewPresenceRegistry()
	s := &Server{
		gatewayID: cfg.GatewayID,
		auth:      cfg.Auth,
		registry:  registry,
		caster:    NewBroadcaster(registry),
		bus:       cfg.Bus,
		disp:      NewDispatcher(),
		sessions:  make(map[string]*Session),
	}
	if s.bus != nil {
		s.bus.Subscribe(s.onBusEvent)
	}
	return s
}

func (s *Server) GatewayID() string           { return s.gatewayID }
func (s *Server) Registry() *PresenceRegistry { return s.registry }
func (s *Server) Caster() *Broadcaster        { return s.caster }
func (s *Server) Disp() *Dispatcher           { return s.disp }

// PublishEvent hands the event to the bus for other processes. A bus failure
// is logged and swallowed: the local broadcast already happened and must not
// be rolled back.
func (s *Server) PublishEvent(ctx context.Context, ev Event) {
	if s.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, ev); err != nil {
		logger.Errorf("[bridge] publish %s ws=%s err=%v", ev.EventName(), ev.Workspace(), err)
	}
}

// onBusEvent re-injects events published by other gateways into the local
// broadcaster. It never republishes: that is what keeps the fleet loop-free.
func (s *Server) onBusEvent(env *Envelope, ev Event) {
	if env.Origin == s.gatewayID {
		// Our own publish echoed back by the bus.
		return
	}
	s.caster.Broadcast(ev.Workspace(), ev, "")
}

func (s *Server) addSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Server) removeSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Session looks up a live session by ID.
func (s *Server) Session(sessionID string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

// Disconnect runs the full cleanup for a departed connection: one user:left
// per workspace the session was still in, locally and across the bridge, then
// the transport and session table entries go away. Safe to call regardless of
// which handler was mid-flight when the socket died.
func (s *Server) Disconnect(sess *Session) {
	removed := s.registry.RemoveEverywhere(sess.ID)
	for _, ws := range removed {
		ev := UserLeft{
			SessionID:   sess.ID,
			UserName:    sess.UserName(),
			WorkspaceID: ws,
			Timestamp:   Now(),
		}
		s.caster.Broadcast(ws, ev, sess.ID)
		// Synthetic leaves cross the bridge too, so remote views don't hold
		// stale presence for implicitly disconnected members.
		s.PublishEvent(context.Background(), ev)
	}
	s.caster.Detach(sess.ID)
	s.removeSession(sess.ID)
	logger.Infof("[gateway] session %s disconnected, left %d workspace(s)", sess.ID, len(removed))
}
