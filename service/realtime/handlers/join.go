package handlers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"WProject/logger"
	"WProject/service/realtime"
	"WProject/tools/decode"
	"WProject/tools/errs"
)

type joinPayload struct {
	WorkspaceID string `json:"workspaceId"`
	UserName    string `json:"userName"`
}

type JoinHandler struct{}

func NewJoinHandler() realtime.Handler { return &JoinHandler{} }

func (h *JoinHandler) Event() string { return realtime.MsgJoinWorkspace }

func (h *JoinHandler) Handle(ctx *realtime.Context, sess *realtime.Session, data map[string]any) error {
	p, err := decode.Map[joinPayload](data)
	if err != nil {
		return errs.ErrValidation.WithDetail(err.Error())
	}
	if _, err := uuid.Parse(p.WorkspaceID); err != nil {
		return errs.ErrValidation.WithDetail("workspaceId must be a uuid")
	}
	if strings.TrimSpace(p.UserName) == "" {
		return errs.ErrValidation.WithDetail("userName is required")
	}

	s := ctx.S
	sess.SetUserName(p.UserName)
	s.Registry().Join(p.WorkspaceID, sess.ID)

	ev := realtime.UserJoined{
		SessionID:   sess.ID,
		UserName:    p.UserName,
		WorkspaceID: p.WorkspaceID,
		Timestamp:   realtime.Now(),
	}
	// The joiner has no prior room state, so nobody is excluded.
	s.Caster().Broadcast(p.WorkspaceID, ev, "")
	s.PublishEvent(context.Background(), ev)

	logger.Infof("[realtime] user %s joined workspace %s", p.UserName, p.WorkspaceID)

	s.Caster().Send(sess.ID, realtime.MsgJoinWorkspace+":ack", realtime.Ack{
		Success:     true,
		Message:     "Joined workspace successfully",
		ActiveUsers: s.Registry().Count(p.WorkspaceID),
	})
	return nil
}
