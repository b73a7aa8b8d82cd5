package realtime

import (
	"sync"
)

// PresenceRegistry tracks which sessions are members of which workspace room
// on this process only. Sessions on other gateways never appear here; the
// bridge carries their events instead of their membership.
//
// All methods are safe for concurrent use from per-connection goroutines.
type PresenceRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // workspaceID -> set of sessionID
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{rooms: make(map[string]map[string]struct{})}
}

// Join adds the session to the workspace set, creating it on first member.
// Joining twice is a no-op.
func (r *PresenceRegistry) Join(workspaceID, sessionID string) {
	if workspaceID == "" || sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[workspaceID]
	if set == nil {
		set = make(map[string]struct{})
		r.rooms[workspaceID] = set
	}
	set[sessionID] = struct{}{}
}

// Leave removes the session if present; leave-without-join is tolerated.
func (r *PresenceRegistry) Leave(workspaceID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[workspaceID]
	if set == nil {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.rooms, workspaceID)
	}
}

// RemoveEverywhere drops the session from every workspace set and returns the
// workspaces it was removed from, so the caller can emit one leave event per
// affected room. Called on disconnect.
func (r *PresenceRegistry) RemoveEverywhere(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for ws, set := range r.rooms {
		if _, ok := set[sessionID]; !ok {
			continue
		}
		delete(set, sessionID)
		removed = append(removed, ws)
		if len(set) == 0 {
			delete(r.rooms, ws)
		}
	}
	return removed
}

// Count returns how many sessions this process has in the workspace. This is
// a local figure, not a fleet-wide participant count.
func (r *PresenceRegistry) Count(workspaceID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[workspaceID])
}

// Members snapshots the local session IDs in the workspace.
func (r *PresenceRegistry) Members(workspaceID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[workspaceID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
