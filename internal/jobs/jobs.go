// Package jobs runs pipelines in the background on a fixed pool of workers
// and keeps their status for lookup.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sprite-ai/prlens/internal/config"
	"github.com/sprite-ai/prlens/internal/model"
	"github.com/sprite-ai/prlens/internal/pipeline"
)

var (
	ErrNotFound  = errors.New("job not found")
	ErrQueueFull = errors.New("job queue is full")
	ErrClosed    = errors.New("job queue is closed")
)

// Status is the lifecycle position of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Runner runs one pipeline. *pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, b pipeline.ContextBuilder) (*model.Report, error)
}

// Job is a snapshot of one submitted run.
type Job struct {
	ID        string        `json:"id"`
	Status    Status        `json:"status"`
	Report    *model.Report `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
	Submitted time.Time     `json:"submitted_at"`
	Started   time.Time     `json:"started_at,omitzero"`
	Finished  time.Time     `json:"finished_at,omitzero"`
}

type entry struct {
	job     Job
	builder pipeline.ContextBuilder
	done    chan struct{}
}

// defaultMaxFinished applies when config.Jobs leaves MaxFinished unset.
const defaultMaxFinished = 256

// Queue is a bounded job queue served by a worker pool. Finished jobs are
// kept for lookup until more than maxFinished have accumulated, oldest
// evicted first.
type Queue struct {
	runner      Runner
	workers     int
	maxFinished int
	log         zerolog.Logger

	mu       sync.Mutex
	jobs     map[string]*entry
	finished []string
	closed   bool

	pending chan *entry
	wg      sync.WaitGroup
}

// New returns a queue. Call Start to begin processing.
func New(runner Runner, cfg config.Jobs, log zerolog.Logger) *Queue {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	maxFinished := cfg.MaxFinished
	if maxFinished < 1 {
		maxFinished = defaultMaxFinished
	}
	return &Queue{
		runner:      runner,
		workers:     workers,
		maxFinished: maxFinished,
		log:         log,
		jobs:        make(map[string]*entry),
		pending:     make(chan *entry, cfg.QueueSize),
	}
}

// Start launches the workers. Runs receive ctx; cancelling it stops
// context building and publishing but not a stage already underway.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
}

func (q *Queue) work(ctx context.Context, n int) {
	defer q.wg.Done()
	log := q.log.With().Int("worker", n).Logger()
	for e := range q.pending {
		q.update(e, func(j *Job) {
			j.Status = StatusRunning
			j.Started = time.Now()
		})
		log.Debug().Str("job", e.job.ID).Msg("job started")

		report, err := q.runner.Run(ctx, e.builder)

		q.finish(e, report, err)
		if err != nil {
			log.Warn().Err(err).Str("job", e.job.ID).Msg("job failed")
		} else {
			log.Debug().Str("job", e.job.ID).Msg("job done")
		}
	}
}

func (q *Queue) update(e *entry, fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn(&e.job)
}

// finish records the outcome, releases waiters and evicts the oldest
// finished jobs beyond maxFinished.
func (q *Queue) finish(e *entry, report *model.Report, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e.job.Finished = time.Now()
	e.job.Report = report
	if err != nil {
		e.job.Status = StatusFailed
		e.job.Error = err.Error()
	} else {
		e.job.Status = StatusDone
	}
	close(e.done)

	q.finished = append(q.finished, e.job.ID)
	for len(q.finished) > q.maxFinished {
		delete(q.jobs, q.finished[0])
		q.finished = q.finished[1:]
	}
}

// Submit enqueues a run and returns its job id.
func (q *Queue) Submit(b pipeline.ContextBuilder) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrClosed
	}

	e := &entry{
		job:     Job{ID: uuid.NewString(), Status: StatusQueued, Submitted: time.Now()},
		builder: b,
		done:    make(chan struct{}),
	}
	select {
	case q.pending <- e:
	default:
		return "", ErrQueueFull
	}
	q.jobs[e.job.ID] = e
	return e.job.ID, nil
}

// Status returns a snapshot of job id.
func (q *Queue) Status(id string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return e.job, nil
}

// Wait blocks until job id finishes or ctx is done. A waiter registered
// before eviction still receives the final snapshot.
func (q *Queue) Wait(ctx context.Context, id string) (Job, error) {
	q.mu.Lock()
	e, ok := q.jobs[id]
	q.mu.Unlock()
	if !ok {
		return Job{}, ErrNotFound
	}
	select {
	case <-e.done:
		q.mu.Lock()
		defer q.mu.Unlock()
		return e.job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.pending)
	q.mu.Unlock()
	q.wg.Wait()
}
