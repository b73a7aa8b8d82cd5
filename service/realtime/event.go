package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound message names (client -> gateway).
const (
	MsgJoinWorkspace  = "join:workspace"
	MsgLeaveWorkspace = "leave:workspace"
	MsgFileChange     = "file:change"
	MsgCursorUpdate   = "cursor:update"
	MsgPing           = "ping"
)

// Outbound event names (gateway -> client, and across the bridge).
const (
	EventUserJoined    = "user:joined"
	EventUserLeft      = "user:left"
	EventFileChanged   = "file:changed"
	EventCursorUpdated = "cursor:updated"
	EventPong          = "pong"
	EventError         = "error"
)

// File change kinds accepted by MsgFileChange.
const (
	ChangeCreate = "create"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// Event is one member of the closed set of broadcast payloads. Every event
// carries its workspace so the bridge can route it without per-type knowledge.
type Event interface {
	EventName() string
	Workspace() string
}

type UserJoined struct {
	SessionID   string `json:"sessionId"`
	UserName    string `json:"userName"`
	WorkspaceID string `json:"workspaceId"`
	Timestamp   string `json:"timestamp"`
}

func (UserJoined) EventName() string   { return EventUserJoined }
func (e UserJoined) Workspace() string { return e.WorkspaceID }

type UserLeft struct {
	SessionID   string `json:"sessionId"`
	UserName    string `json:"userName"`
	WorkspaceID string `json:"workspaceId"`
	Timestamp   string `json:"timestamp"`
}

func (UserLeft) EventName() string   { return EventUserLeft }
func (e UserLeft) Workspace() string { return e.WorkspaceID }

type FileChanged struct {
	SessionID   string  `json:"sessionId"`
	UserName    string  `json:"userName"`
	WorkspaceID string  `json:"workspaceId"`
	FileName    string  `json:"fileName"`
	ChangeType  string  `json:"changeType"`
	Content     *string `json:"content"`
	Timestamp   string  `json:"timestamp"`
}

func (FileChanged) EventName() string   { return EventFileChanged }
func (e FileChanged) Workspace() string { return e.WorkspaceID }

type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type CursorUpdated struct {
	SessionID   string         `json:"sessionId"`
	UserName    string         `json:"userName"`
	WorkspaceID string         `json:"workspaceId"`
	FileName    string         `json:"fileName"`
	Position    CursorPosition `json:"position"`
	Timestamp   string         `json:"timestamp"`
}

func (CursorUpdated) EventName() string   { return EventCursorUpdated }
func (e CursorUpdated) Workspace() string { return e.WorkspaceID }

// Envelope is the unit published on the shared bus: the event name
// discriminates which typed payload Data holds, Origin names the gateway that
// produced it so a process can drop its own echoes.
type Envelope struct {
	Event  string          `json:"event"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data"`
}

func NewEnvelope(origin string, ev Event) (*Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: ev.EventName(), Origin: origin, Data: data}, nil
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("envelope missing event name")
	}
	return env, nil
}

func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent resolves the envelope into its typed variant. Unknown event
// names are rejected here, at the bridge boundary.
func (e *Envelope) DecodeEvent() (Event, error) {
	switch e.Event {
	case EventUserJoined:
		var ev UserJoined
		if err := json.Unmarshal(e.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventUserLeft:
		var ev UserLeft
		if err := json.Unmarshal(e.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventFileChanged:
		var ev FileChanged
		if err := json.Unmarshal(e.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventCursorUpdated:
		var ev CursorUpdated
		if err := json.Unmarshal(e.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event %q", e.Event)
	}
}

// Frame builds a client-bound wire frame {event, data}.
func Frame(event string, data any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: data})
}

// EventFrame is Frame for a typed broadcast event.
func EventFrame(ev Event) ([]byte, error) {
	return Frame(ev.EventName(), ev)
}

// Now formats the server timestamp the way event consumers expect.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
