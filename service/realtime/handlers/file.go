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

type fileChangePayload struct {
	WorkspaceID string  `json:"workspaceId"`
	FileName    string  `json:"fileName"`
	ChangeType  string  `json:"changeType"`
	Content     *string `json:"content"`
}

type FileChangeHandler struct{}

func NewFileChangeHandler() realtime.Handler { return &FileChangeHandler{} }

func (h *FileChangeHandler) Event() string { return realtime.MsgFileChange }

func (h *FileChangeHandler) Handle(ctx *realtime.Context, sess *realtime.Session, data map[string]any) error {
	p, err := decode.Map[fileChangePayload](data)
	if err != nil {
		return errs.ErrValidation.WithDetail(err.Error())
	}
	if _, err := uuid.Parse(p.WorkspaceID); err != nil {
		return errs.ErrValidation.WithDetail("workspaceId must be a uuid")
	}
	if strings.TrimSpace(p.FileName) == "" {
		return errs.ErrValidation.WithDetail("fileName is required")
	}
	switch p.ChangeType {
	case realtime.ChangeCreate, realtime.ChangeUpdate, realtime.ChangeDelete:
	default:
		return errs.ErrValidation.WithDetail("changeType must be create/update/delete")
	}

	s := ctx.S
	ev := realtime.FileChanged{
		SessionID:   sess.ID,
		UserName:    sess.UserName(),
		WorkspaceID: p.WorkspaceID,
		FileName:    p.FileName,
		ChangeType:  p.ChangeType,
		Content:     p.Content,
		Timestamp:   realtime.Now(),
	}
	// The originator never receives its own echo.
	s.Caster().Broadcast(p.WorkspaceID, ev, sess.ID)
	s.PublishEvent(context.Background(), ev)

	logger.Infof("[realtime] file %s %s in workspace %s", p.FileName, p.ChangeType, p.WorkspaceID)

	s.Caster().Send(sess.ID, realtime.MsgFileChange+":ack", realtime.Ack{
		Success: true,
		Message: "File change broadcasted",
	})
	return nil
}
