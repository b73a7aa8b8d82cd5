package jobs

import (
	"context"
	"fmt"
	"time"

	"WProject/service/store"
)

// Built-in executors. Real work (sandboxed execution, export rendering) hangs
// off these entry points; what matters to the queue is the result/error
// contract and the time they take.

func ExecuteCode(ctx context.Context, job *store.Job) (string, error) {
	if err := simulate(ctx, 2*time.Second); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"output":"code executed","jobId":"%s"}`, job.ID), nil
}

func ProcessFile(ctx context.Context, job *store.Job) (string, error) {
	if err := simulate(ctx, 1*time.Second); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"output":"file processed","jobId":"%s"}`, job.ID), nil
}

func ExportData(ctx context.Context, job *store.Job) (string, error) {
	if err := simulate(ctx, 3*time.Second); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"output":"export ready","jobId":"%s"}`, job.ID), nil
}

func simulate(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RegisterDefaults wires the built-in executors for every known job type.
func RegisterDefaults(q *Queue) {
	q.RegisterHandler(store.JobCodeExecution, ExecuteCode)
	q.RegisterHandler(store.JobFileProcessing, ProcessFile)
	q.RegisterHandler(store.JobDataExport, ExportData)
}
