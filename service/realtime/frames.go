package realtime

import (
	"encoding/json"
	"fmt"
)

// WireFrame is the inbound client message: {"event": "...", "data": {...}}.
type WireFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func ParseFrame(raw []byte) (*WireFrame, error) {
	f := &WireFrame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame missing event name")
	}
	return f, nil
}

// Ack is the per-message acknowledgment sent back on the same connection as
// "<event>:ack".
type Ack struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	ActiveUsers int    `json:"activeUsers,omitempty"`
}

// ErrorBody is the payload of an "error" frame for rejected messages.
type ErrorBody struct {
	Event  string `json:"event"`
	Code   int    `json:"code"`
	Detail string `json:"message"`
}
