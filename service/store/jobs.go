package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"WProject/tools/errs"
)

// Job lifecycle states.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job types the queue knows how to process.
const (
	JobCodeExecution  = "code_execution"
	JobFileProcessing = "file_processing"
	JobDataExport     = "data_export"
)

func ValidJobType(t string) bool {
	switch t {
	case JobCodeExecution, JobFileProcessing, JobDataExport:
		return true
	}
	return false
}

type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	UserID      string     `json:"userId"`
	WorkspaceID *string    `json:"workspaceId,omitempty"`
	Payload     string     `json:"payload,omitempty"`
	Result      *string    `json:"result,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type JobStore struct {
	db *DB
}

func NewJobStore(db *DB) *JobStore { return &JobStore{db: db} }

const jobCols = `id, type, status, user_id, workspace_id, payload, result, error,
	attempts, max_attempts, started_at, completed_at, created_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Type, &j.Status, &j.UserID, &j.WorkspaceID, &j.Payload,
		&j.Result, &j.Error, &j.Attempts, &j.MaxAttempts, &j.StartedAt, &j.CompletedAt, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrRecordNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (s *JobStore) Create(ctx context.Context, jobType, userID string, workspaceID *string, payload string, maxAttempts int) (*Job, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	row := s.db.Pool.QueryRow(ctx, `
		INSERT INTO jobs (id, type, status, user_id, workspace_id, payload, attempts, max_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, now())
		RETURNING `+jobCols,
		uuid.NewString(), jobType, JobPending, userID, workspaceID, payload, maxAttempts)
	return scanJob(row)
}

func (s *JobStore) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+jobCols+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (s *JobStore) listQuery(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListByUser returns the user's most recent jobs (last 50), optionally
// filtered by status.
func (s *JobStore) ListByUser(ctx context.Context, userID, status string) ([]*Job, error) {
	if status != "" {
		return s.listQuery(ctx,
			`SELECT `+jobCols+` FROM jobs WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 50`,
			userID, status)
	}
	return s.listQuery(ctx,
		`SELECT `+jobCols+` FROM jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT 50`,
		userID)
}

func (s *JobStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]*Job, error) {
	return s.listQuery(ctx,
		`SELECT `+jobCols+` FROM jobs WHERE workspace_id = $1 ORDER BY created_at DESC LIMIT 50`,
		workspaceID)
}

// MarkRunning bumps the attempt counter and stamps started_at.
func (s *JobStore) MarkRunning(ctx context.Context, id string) (*Job, error) {
	row := s.db.Pool.QueryRow(ctx, `
		UPDATE jobs SET status = $2, attempts = attempts + 1, started_at = now(), error = NULL
		WHERE id = $1
		RETURNING `+jobCols, id, JobRunning)
	return scanJob(row)
}

func (s *JobStore) MarkCompleted(ctx context.Context, id, result string) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE jobs SET status = $2, result = $3, completed_at = now()
		WHERE id = $1`, id, JobCompleted, result)
	return err
}

func (s *JobStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE jobs SET status = $2, error = $3, completed_at = now()
		WHERE id = $1`, id, JobFailed, errMsg)
	return err
}

// ResetForRetry returns a failed job to pending with a clean slate.
func (s *JobStore) ResetForRetry(ctx context.Context, id string) (*Job, error) {
	row := s.db.Pool.QueryRow(ctx, `
		UPDATE jobs SET status = $2, attempts = 0, error = NULL, result = NULL,
			started_at = NULL, completed_at = NULL
		WHERE id = $1 AND status = $3
		RETURNING `+jobCols, id, JobPending, JobFailed)
	j, err := scanJob(row)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			return nil, errs.ErrValidation.WithDetail("only failed jobs can be retried")
		}
		return nil, err
	}
	return j, nil
}

// CountByStatus feeds the queue stats endpoint.
func (s *JobStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
