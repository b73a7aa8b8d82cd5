package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"WProject/tools/errs"
)

type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ProjectID   string    `json:"projectId"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type WorkspaceStore struct {
	db *DB
}

func NewWorkspaceStore(db *DB) *WorkspaceStore { return &WorkspaceStore{db: db} }

const workspaceCols = `id, name, description, project_id, is_active, created_at, updated_at`

func scanWorkspace(row pgx.Row) (*Workspace, error) {
	var w Workspace
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.ProjectID, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrRecordNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *WorkspaceStore) Create(ctx context.Context, name, description, projectID string) (*Workspace, error) {
	id := uuid.NewString()
	row := s.db.Pool.QueryRow(ctx, `
		INSERT INTO workspaces (id, name, description, project_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, now(), now())
		RETURNING `+workspaceCols,
		id, name, description, projectID)
	return scanWorkspace(row)
}

func (s *WorkspaceStore) GetByID(ctx context.Context, id string) (*Workspace, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+workspaceCols+` FROM workspaces WHERE id = $1`, id)
	return scanWorkspace(row)
}

func (s *WorkspaceStore) ListByProject(ctx context.Context, projectID string) ([]*Workspace, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+workspaceCols+` FROM workspaces WHERE project_id = $1 ORDER BY created_at DESC`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *WorkspaceStore) Update(ctx context.Context, id string, name, description *string, isActive *bool) (*Workspace, error) {
	row := s.db.Pool.QueryRow(ctx, `
		UPDATE workspaces SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			is_active   = COALESCE($4, is_active),
			updated_at  = now()
		WHERE id = $1
		RETURNING `+workspaceCols,
		id, name, description, isActive)
	return scanWorkspace(row)
}

func (s *WorkspaceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrRecordNotFound
	}
	return nil
}

// ProjectOwner returns the owner of the project a workspace belongs to; used
// by REST handlers for ownership checks.
func (s *WorkspaceStore) ProjectOwner(ctx context.Context, projectID string) (string, error) {
	var ownerID string
	err := s.db.Pool.QueryRow(ctx,
		`SELECT owner_id FROM projects WHERE id = $1`, projectID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrRecordNotFound
		}
		return "", err
	}
	return ownerID, nil
}
