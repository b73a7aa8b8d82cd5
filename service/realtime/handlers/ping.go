package handlers

import (
	"WProject/service/realtime"
)

type pongBody struct {
	Timestamp string `json:"timestamp"`
}

type PingHandler struct{}

func NewPingHandler() realtime.Handler { return &PingHandler{} }

func (h *PingHandler) Event() string { return realtime.MsgPing }

// Liveness check: answers immediately with the server time, no state effect.
func (h *PingHandler) Handle(ctx *realtime.Context, sess *realtime.Session, _ map[string]any) error {
	ctx.S.Caster().Send(sess.ID, realtime.EventPong, pongBody{Timestamp: realtime.Now()})
	return nil
}

// Register wires the full protocol handler set into the server's dispatcher.
func Register(s *realtime.Server) {
	s.Disp().Register(NewJoinHandler())
	s.Disp().Register(NewLeaveHandler())
	s.Disp().Register(NewFileChangeHandler())
	s.Disp().Register(NewCursorHandler())
	s.Disp().Register(NewPingHandler())
}
