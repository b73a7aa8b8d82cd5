package handlers

import (
	"context"

	"github.com/google/uuid"

	"WProject/logger"
	"WProject/service/realtime"
	"WProject/tools/decode"
	"WProject/tools/errs"
)

type leavePayload struct {
	WorkspaceID string `json:"workspaceId"`
}

type LeaveHandler struct{}

func NewLeaveHandler() realtime.Handler { return &LeaveHandler{} }

func (h *LeaveHandler) Event() string { return realtime.MsgLeaveWorkspace }

func (h *LeaveHandler) Handle(ctx *realtime.Context, sess *realtime.Session, data map[string]any) error {
	p, err := decode.Map[leavePayload](data)
	if err != nil {
		return errs.ErrValidation.WithDetail(err.Error())
	}
	if _, err := uuid.Parse(p.WorkspaceID); err != nil {
		return errs.ErrValidation.WithDetail("workspaceId must be a uuid")
	}

	s := ctx.S
	s.Registry().Leave(p.WorkspaceID, sess.ID)

	ev := realtime.UserLeft{
		SessionID:   sess.ID,
		UserName:    sess.UserName(),
		WorkspaceID: p.WorkspaceID,
		Timestamp:   realtime.Now(),
	}
	s.Caster().Broadcast(p.WorkspaceID, ev, sess.ID)
	s.PublishEvent(context.Background(), ev)

	logger.Infof("[realtime] user %s left workspace %s", sess.UserName(), p.WorkspaceID)

	s.Caster().Send(sess.ID, realtime.MsgLeaveWorkspace+":ack", realtime.Ack{
		Success: true,
		Message: "Left workspace successfully",
	})
	return nil
}
