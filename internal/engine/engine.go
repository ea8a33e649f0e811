// Package engine owns the in-memory job collection and drives the single
// processing loop. Every structural change to the collection is followed by
// a snapshot of the pending jobs written to the configured store.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"jobflow/internal/event"
	"jobflow/internal/model"
	"jobflow/internal/store"
)

var (
	ErrNoProcessor    = errors.New("engine: no process function set")
	ErrNotStarted     = errors.New("engine: not started")
	ErrAlreadyStarted = errors.New("engine: already started")
	ErrStopped        = errors.New("engine: stopped")
	ErrInvalidPayload = errors.New("engine: payload is not valid JSON")
)

// Processor is the application-supplied work function. The returned value
// is stored as the job result after JSON encoding.
type Processor interface {
	Process(ctx context.Context, job model.Job) (any, error)
}

type ProcessorFunc func(ctx context.Context, job model.Job) (any, error)

func (f ProcessorFunc) Process(ctx context.Context, job model.Job) (any, error) {
	return f(ctx, job)
}

type Engine struct {
	store store.Store
	bus   event.Bus
	opts  options

	mu        sync.Mutex
	jobs      []*model.Job
	inflight  *model.Job
	history   []model.Job
	processor Processor
	started   bool
	stopped   bool
	running   bool
	baseCtx   context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	wake      chan struct{}
	wg        sync.WaitGroup
	seq       uint64
	counts    counters

	saveMu  sync.Mutex
	lastSeq uint64
}

type counters struct {
	completed int
	failed    int
	retried   int
}

func New(st store.Store, bus event.Bus, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if bus == nil {
		bus = event.Nop{}
	}
	return &Engine{
		store: st,
		bus:   bus,
		opts:  o,
		wake:  make(chan struct{}, 1),
	}
}

// SetProcessFunc installs the processor used for every job.
func (e *Engine) SetProcessFunc(p Processor) {
	e.mu.Lock()
	e.processor = p
	e.mu.Unlock()
}

// Start loads the last snapshot and begins processing. It refuses to run
// without a processor. The loop lives until ctx is cancelled or Stop is
// called; processors receive ctx itself, so Stop lets the in-flight job
// finish.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	if e.processor == nil {
		e.mu.Unlock()
		return ErrNoProcessor
	}
	e.mu.Unlock()

	loaded, err := e.store.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load snapshot failed, starting with an empty queue")
		loaded = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseCtx = ctx
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.started = true
	for _, j := range model.PendingOnly(loaded) {
		e.jobs = append(e.jobs, &j)
	}
	if len(e.jobs) > 0 {
		log.Info().Int("jobs", len(e.jobs)).Msg("job queue loaded from snapshot")
		e.kickLocked()
	}
	return nil
}

// Stop cancels the loop, waits for the in-flight job and writes a final
// snapshot. It returns ctx.Err() if the loop does not exit in time.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.cancel()
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.mu.Lock()
	snap, seq := e.snapshotLocked()
	e.mu.Unlock()
	e.persist(snap, seq)
	return nil
}

// Enqueue appends a new pending job and returns its id. Processing happens
// asynchronously.
func (e *Engine) Enqueue(ctx context.Context, payload json.RawMessage, opts ...EnqueueOption) (string, error) {
	if !json.Valid(payload) {
		return "", ErrInvalidPayload
	}
	var eo enqueueOptions
	for _, opt := range opts {
		opt(&eo)
	}

	id, err := newJobID()
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return "", ErrNotStarted
	}
	if e.stopped || e.ctx.Err() != nil {
		e.mu.Unlock()
		return "", ErrStopped
	}
	data := make(json.RawMessage, len(payload))
	copy(data, payload)
	job := model.NewJob(id, data, e.opts.now())
	job.WorkerID = eo.workerID
	e.jobs = append(e.jobs, job)
	snap, seq := e.snapshotLocked()
	view := job.Clone()
	e.kickLocked()
	e.mu.Unlock()

	log.Debug().Str("job_id", id).Int64("worker_id", eo.workerID).Msg("job enqueued")
	e.persist(snap, seq)
	e.bus.Publish(ctx, event.Event{Type: event.JobEnqueued, Payload: event.JobEvent{Job: view}})
	return id, nil
}

// kickLocked starts the loop when idle, otherwise nudges a waiting loop to
// re-check readiness.
func (e *Engine) kickLocked() {
	if e.running {
		select {
		case e.wake <- struct{}{}:
		default:
		}
		return
	}
	if !e.started || e.stopped {
		return
	}
	e.running = true
	e.wg.Add(1)
	go e.run()
}

// snapshotLocked copies the pending jobs, in-flight job first.
func (e *Engine) snapshotLocked() ([]model.Job, uint64) {
	e.seq++
	jobs := make([]model.Job, 0, len(e.jobs)+1)
	if e.inflight != nil {
		jobs = append(jobs, e.inflight.Clone())
	}
	for _, j := range e.jobs {
		jobs = append(jobs, j.Clone())
	}
	return model.PendingOnly(jobs), e.seq
}

// persist writes a snapshot outside the collection lock. Snapshots older
// than one already handed to the store are dropped. Failures are logged;
// memory stays authoritative until the next successful save.
func (e *Engine) persist(jobs []model.Job, seq uint64) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if seq <= e.lastSeq {
		return
	}
	e.lastSeq = seq
	if err := e.store.Save(context.Background(), jobs); err != nil {
		log.Error().Err(err).Int("jobs", len(jobs)).Msg("error saving job queue snapshot")
	}
}

func newJobID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return "job_" + u.String(), nil
}
