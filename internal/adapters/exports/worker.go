// Package exports runs entity exports in the background and keeps the
// resulting EATSML documents in blob storage.
package exports

import (
	"context"
	"eats/internal/blob"
	"eats/internal/core"
	"eats/internal/eatsml"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status describes the lifecycle stage of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// KeyPrefix prefixes the blob key of every finished export.
const KeyPrefix = "exports/"

const defaultQueueSize = 32

// ErrQueueFull is returned when the worker cannot accept another job.
var ErrQueueFull = errors.New("export queue full")

// Request describes one entity export.
type Request struct {
	// AuthorityID limits the export to entities with an existence assertion
	// from that authority. Zero exports every entity.
	AuthorityID domain.ID
	Annotated   bool
	FullDetails bool
	User        domain.User
}

// Job tracks an export request and its stored document.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	AuthorityID domain.ID  `json:"authority_id,omitempty"`
	Annotated   bool       `json:"annotated"`
	FullDetails bool       `json:"full_details"`
	RequestedBy string     `json:"requested_by"`
	Error       string     `json:"error,omitempty"`
	Document    *blob.Info `json:"document,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (j Job) copy() Job {
	dup := j
	if j.Document != nil {
		doc := *j.Document
		dup.Document = &doc
	}
	return dup
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(logger core.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock overrides the job timestamp source.
func WithClock(clock core.Clock) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithQueueSize bounds the number of jobs waiting to run.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithCodecOptions passes options to every exporter the worker builds.
func WithCodecOptions(opts ...eatsml.Option) Option {
	return func(w *Worker) {
		w.codec = append(w.codec, opts...)
	}
}

// Worker executes entity exports asynchronously, one at a time.
type Worker struct {
	store     domain.PersistentStore
	blobs     blob.Store
	logger    core.Logger
	clock     core.Clock
	codec     []eatsml.Option
	queueSize int

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id  string
	req Request
}

// NewWorker constructs a worker exporting from store into blobs.
func NewWorker(store domain.PersistentStore, blobs blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		store:     store,
		blobs:     blobs,
		logger:    nopLogger{},
		clock:     core.ClockFunc(nil),
		queueSize: defaultQueueSize,
		jobs:      make(map[string]*Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan task, w.queueSize)
	return w
}

// Start begins processing export jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running job.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules an export and returns the queued job.
func (w *Worker) Enqueue(ctx context.Context, req Request) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	if w.store == nil || w.blobs == nil {
		return Job{}, fmt.Errorf("export worker not configured")
	}
	now := w.clock.Now().UTC()
	job := Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		AuthorityID: req.AuthorityID,
		Annotated:   req.Annotated,
		FullDetails: req.FullDetails,
		RequestedBy: req.User.Username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.queue <- task{id: job.ID, req: req}:
	default:
		return Job{}, ErrQueueFull
	}
	w.jobs[job.ID] = &job
	w.logger.Info("export queued", "job", job.ID, "user", job.RequestedBy)
	return job.copy(), nil
}

// Get returns a snapshot of the job.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

// Key returns the blob key of the document a job writes.
func Key(id string) string { return KeyPrefix + id + ".xml" }

func (w *Worker) process(t task) {
	w.update(t.id, func(j *Job) { j.Status = StatusRunning })

	profile := t.req.User.Profile
	opts := eatsml.ExportOptions{Annotated: t.req.Annotated, FullDetails: t.req.FullDetails, Profile: &profile}
	data, err := eatsml.ExportAuthorityFrom(w.ctx, w.store, t.req.AuthorityID, opts, w.codec...)
	if err != nil {
		w.fail(t.id, err)
		return
	}
	info, err := blob.PutBytes(w.ctx, w.blobs, Key(t.id), data, "application/xml")
	if err != nil {
		w.fail(t.id, fmt.Errorf("store export: %w", err))
		return
	}
	w.update(t.id, func(j *Job) {
		now := w.clock.Now().UTC()
		j.Status = StatusSucceeded
		j.Document = &info
		j.CompletedAt = &now
	})
	w.logger.Info("export finished", "job", t.id, "bytes", info.Size)
}

func (w *Worker) fail(id string, err error) {
	w.update(id, func(j *Job) {
		now := w.clock.Now().UTC()
		j.Status = StatusFailed
		j.Error = err.Error()
		j.CompletedAt = &now
	})
	w.logger.Error("export failed", "job", id, "error", err)
}

func (w *Worker) update(id string, mutate func(*Job)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[id]; ok {
		mutate(job)
		job.UpdatedAt = w.clock.Now().UTC()
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
