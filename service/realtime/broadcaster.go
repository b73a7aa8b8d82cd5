package realtime

import (
	"sync"

	"WProject/logger"
)

// Broadcaster fans one event out to every local transport in a workspace
// room. Delivery is fire-and-forget: a recipient mid-teardown or with a full
// queue is skipped without failing the broadcast.
type Broadcaster struct {
	registry *PresenceRegistry

	mu         sync.RWMutex
	transports map[string]*Transport // sessionID -> transport
}

func NewBroadcaster(registry *PresenceRegistry) *Broadcaster {
	return &Broadcaster{
		registry:   registry,
		transports: make(map[string]*Transport),
	}
}

func (b *Broadcaster) Attach(sessionID string, t *Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transports[sessionID] = t
}

func (b *Broadcaster) Detach(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.transports, sessionID)
}

// Broadcast delivers ev to every local member of the workspace room, skipping
// excludeSessionID if given.
func (b *Broadcaster) Broadcast(workspaceID string, ev Event, excludeSessionID string) {
	members := b.registry.Members(workspaceID)
	if len(members) == 0 {
		return
	}
	payload, err := EventFrame(ev)
	if err != nil {
		logger.Errorf("[broadcast] marshal %s err=%v", ev.EventName(), err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, id := range members {
		if id == excludeSessionID {
			continue
		}
		t := b.transports[id]
		if t == nil {
			continue
		}
		if !t.TrySend(payload) {
			logger.Debug("[broadcast] drop for slow/closing session " + id)
		}
	}
}

// Send queues a frame for one session (acks, pong, error frames).
func (b *Broadcaster) Send(sessionID, event string, data any) {
	payload, err := Frame(event, data)
	if err != nil {
		logger.Errorf("[send] marshal %s err=%v", event, err)
		return
	}
	b.mu.RLock()
	t := b.transports[sessionID]
	b.mu.RUnlock()
	if t != nil {
		t.TrySend(payload)
	}
}
