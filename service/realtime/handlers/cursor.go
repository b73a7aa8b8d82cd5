package handlers

import (
	"strings"

	"github.com/google/uuid"

	"WProject/service/realtime"
	"WProject/tools/decode"
	"WProject/tools/errs"
)

type cursorPayload struct {
	WorkspaceID string `json:"workspaceId"`
	FileName    string `json:"fileName"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
}

type CursorHandler struct{}

func NewCursorHandler() realtime.Handler { return &CursorHandler{} }

func (h *CursorHandler) Event() string { return realtime.MsgCursorUpdate }

func (h *CursorHandler) Handle(ctx *realtime.Context, sess *realtime.Session, data map[string]any) error {
	p, err := decode.Map[cursorPayload](data)
	if err != nil {
		return errs.ErrValidation.WithDetail(err.Error())
	}
	if _, err := uuid.Parse(p.WorkspaceID); err != nil {
		return errs.ErrValidation.WithDetail("workspaceId must be a uuid")
	}
	if strings.TrimSpace(p.FileName) == "" {
		return errs.ErrValidation.WithDetail("fileName is required")
	}
	if p.Line < 0 || p.Column < 0 {
		return errs.ErrValidation.WithDetail("line/column must be non-negative")
	}

	s := ctx.S
	ev := realtime.CursorUpdated{
		SessionID:   sess.ID,
		UserName:    sess.UserName(),
		WorkspaceID: p.WorkspaceID,
		FileName:    p.FileName,
		Position:    realtime.CursorPosition{Line: p.Line, Column: p.Column},
		Timestamp:   realtime.Now(),
	}
	// Cursor traffic stays process-local: it is the highest-frequency event
	// class and the next update repairs any miss, so it never crosses the bus.
	s.Caster().Broadcast(p.WorkspaceID, ev, sess.ID)

	s.Caster().Send(sess.ID, realtime.MsgCursorUpdate+":ack", realtime.Ack{Success: true})
	return nil
}
