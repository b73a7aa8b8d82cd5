package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"WProject/tools/errs"
)

// Collaborator roles, lowest to highest privilege.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

type Collaborator struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CollaboratorStore struct {
	db *DB
}

func NewCollaboratorStore(db *DB) *CollaboratorStore { return &CollaboratorStore{db: db} }

const collaboratorCols = `id, workspace_id, user_id, role, created_at`

func scanCollaborator(row pgx.Row) (*Collaborator, error) {
	var c Collaborator
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.UserID, &c.Role, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrRecordNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Invite adds a user to a workspace. Duplicate invitations conflict.
func (s *CollaboratorStore) Invite(ctx context.Context, workspaceID, userID, role string) (*Collaborator, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM collaborators WHERE workspace_id = $1 AND user_id = $2)`,
		workspaceID, userID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.ErrRecordConflict.WithDetail("user is already a collaborator")
	}

	row := s.db.Pool.QueryRow(ctx, `
		INSERT INTO collaborators (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING `+collaboratorCols,
		uuid.NewString(), workspaceID, userID, role)
	return scanCollaborator(row)
}

func (s *CollaboratorStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]*Collaborator, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+collaboratorCols+` FROM collaborators WHERE workspace_id = $1 ORDER BY created_at`,
		workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Collaborator
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CollaboratorStore) UpdateRole(ctx context.Context, id, role string) (*Collaborator, error) {
	row := s.db.Pool.QueryRow(ctx,
		`UPDATE collaborators SET role = $2 WHERE id = $1 RETURNING `+collaboratorCols,
		id, role)
	return scanCollaborator(row)
}

func (s *CollaboratorStore) Remove(ctx context.Context, id string) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM collaborators WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrRecordNotFound
	}
	return nil
}
