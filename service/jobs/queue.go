package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"WProject/logger"
	"WProject/service/store"
	"WProject/tools/errs"
)

const (
	subjectPrefix = "jobs."
	workerQueue   = "jobs-workers"

	initialBackoff = 2 * time.Second
	maxBackoff     = 5 * time.Minute
)

// retryDelay doubles per attempt (2s, 4s, 8s, ...) and clamps at maxBackoff,
// so a large attempt count can never shift the duration negative.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := initialBackoff << uint(attempt-1)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Task is the unit that travels through NATS: just the job ID and which
// attempt this delivery is. Everything else lives in the jobs table.
type Task struct {
	JobID   string `json:"jobId"`
	Attempt int    `json:"attempt"`
}

// HandlerFunc executes one job and returns its result payload.
type HandlerFunc func(ctx context.Context, job *store.Job) (string, error)

// Queue is the at-least-once background job queue. Enqueue publishes a task;
// workers on any process pick it up via a queue subscription, so exactly one
// worker in the fleet handles each delivery.
type Queue struct {
	nc       *nats.Conn
	jobs     *store.JobStore
	handlers map[string]HandlerFunc
	sub      *nats.Subscription
}

func NewQueue(url string, jobs *store.JobStore) (*Queue, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &Queue{
		nc:       nc,
		jobs:     jobs,
		handlers: make(map[string]HandlerFunc),
	}, nil
}

// RegisterHandler binds a job type to its executor. Must be called before
// StartWorker.
func (q *Queue) RegisterHandler(jobType string, h HandlerFunc) {
	q.handlers[jobType] = h
}

// Enqueue publishes the {jobId} task for a pending job.
func (q *Queue) Enqueue(ctx context.Context, job *store.Job) error {
	return q.publish(job.Type, Task{JobID: job.ID, Attempt: job.Attempts})
}

func (q *Queue) publish(jobType string, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := q.nc.Publish(subjectPrefix+jobType, data); err != nil {
		return errs.Wrap(err, "publish task")
	}
	return nil
}

// StartWorker subscribes this process to the shared worker queue group for
// every job subject.
func (q *Queue) StartWorker(ctx context.Context) error {
	sub, err := q.nc.QueueSubscribe(subjectPrefix+">", workerQueue, func(m *nats.Msg) {
		var task Task
		if err := json.Unmarshal(m.Data, &task); err != nil {
			logger.Warnf("[jobs] bad task on %s: %v", m.Subject, err)
			return
		}
		q.process(ctx, task)
	})
	if err != nil {
		return errs.Wrap(err, "queue subscribe")
	}
	q.sub = sub
	return nil
}

func (q *Queue) process(ctx context.Context, task Task) {
	job, err := q.jobs.MarkRunning(ctx, task.JobID)
	if err != nil {
		logger.Errorf("[jobs] mark running %s err=%v", task.JobID, err)
		return
	}

	h := q.handlers[job.Type]
	if h == nil {
		_ = q.jobs.MarkFailed(ctx, job.ID, "no handler for job type "+job.Type)
		return
	}

	logger.Infof("[jobs] processing %s type=%s attempt=%d/%d", job.ID, job.Type, job.Attempts, job.MaxAttempts)

	result, herr := h(ctx, job)
	if herr == nil {
		if err := q.jobs.MarkCompleted(ctx, job.ID, result); err != nil {
			logger.Errorf("[jobs] mark completed %s err=%v", job.ID, err)
		}
		return
	}

	if job.Attempts >= job.MaxAttempts {
		logger.Warnf("[jobs] %s failed permanently after %d attempts: %v", job.ID, job.Attempts, herr)
		if err := q.jobs.MarkFailed(ctx, job.ID, herr.Error()); err != nil {
			logger.Errorf("[jobs] mark failed %s err=%v", job.ID, err)
		}
		return
	}

	delay := retryDelay(job.Attempts)
	logger.Infof("[jobs] %s attempt %d failed (%v); retrying in %s", job.ID, job.Attempts, herr, delay)
	jobType, jobID, attempt := job.Type, job.ID, job.Attempts
	time.AfterFunc(delay, func() {
		if err := q.publish(jobType, Task{JobID: jobID, Attempt: attempt}); err != nil {
			logger.Errorf("[jobs] retry publish %s err=%v", jobID, err)
		}
	})
}

// Stats summarizes the queue by job status.
func (q *Queue) Stats(ctx context.Context) (map[string]int, error) {
	counts, err := q.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	counts["total"] = total
	return counts, nil
}

func (q *Queue) Close() {
	if q.sub != nil {
		_ = q.sub.Drain()
	}
	if q.nc != nil {
		q.nc.Close()
	}
}
