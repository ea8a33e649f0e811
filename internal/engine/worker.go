package engine

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"jobflow/internal/event"
	"jobflow/internal/model"
)

// run is the processing loop. At most one instance is alive at a time; it
// exits when the collection is empty or the engine is stopped.
func (e *Engine) run() {
	defer e.wg.Done()

	for {
		job, wait, ok := e.next()
		if !ok {
			return
		}
		if job == nil {
			if !e.sleep(wait) {
				return
			}
			continue
		}
		e.process(job)
	}
}

// next pops the first ready job in FIFO order. When only retry-blocked
// jobs remain it returns the time until the earliest one becomes ready.
func (e *Engine) next() (*model.Job, time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx.Err() != nil || len(e.jobs) == 0 {
		e.running = false
		return nil, 0, false
	}

	now := e.opts.now()
	var earliest time.Time
	for i, j := range e.jobs {
		if j.Ready(now) {
			e.jobs = append(e.jobs[:i:i], e.jobs[i+1:]...)
			e.inflight = j
			return j, 0, true
		}
		if j.RetryAt != nil && (earliest.IsZero() || j.RetryAt.Before(earliest)) {
			earliest = *j.RetryAt
		}
	}
	return nil, earliest.Sub(now), true
}

// sleep waits for d, a new enqueue, or shutdown. It reports false on
// shutdown.
func (e *Engine) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-e.ctx.Done():
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return false
	case <-e.wake:
	case <-timer.C:
	}
	return true
}

func (e *Engine) process(job *model.Job) {
	e.mu.Lock()
	p := e.processor
	job.Attempts++
	view := job.Clone()
	e.mu.Unlock()

	log.Info().Str("job_id", job.ID).Int("attempt", view.Attempts).Msg("running job")

	result, err := e.invoke(p, view)

	e.mu.Lock()
	now := e.opts.now()
	e.inflight = nil
	var typ event.Type
	switch {
	case err == nil:
		job.Complete(result, now)
		e.rememberLocked(job)
		e.counts.completed++
		typ = event.JobCompleted
	case e.opts.retryDelay > 0 && (e.opts.maxAttempts == 0 || job.Attempts < e.opts.maxAttempts):
		job.Fail(err, now, e.opts.retryDelay)
		e.jobs = append(e.jobs, job)
		e.counts.retried++
		typ = event.JobRetrying
	default:
		job.Fail(err, now, 0)
		e.rememberLocked(job)
		e.counts.failed++
		typ = event.JobFailed
	}
	snap, seq := e.snapshotLocked()
	view = job.Clone()
	e.mu.Unlock()

	switch typ {
	case event.JobCompleted:
		log.Info().Str("job_id", job.ID).Msg("job completed")
	case event.JobRetrying:
		log.Warn().Err(err).Str("job_id", job.ID).Time("retry_at", *view.RetryAt).Msg("job failed, retry scheduled")
	default:
		log.Error().Err(err).Str("job_id", job.ID).Int("attempts", view.Attempts).Msg("job failed permanently")
	}

	e.persist(snap, seq)
	e.bus.Publish(e.baseCtx, event.Event{Type: typ, Payload: event.JobEvent{Job: view}})
}

// invoke calls the processor, turning panics into errors and encoding the
// returned value.
func (e *Engine) invoke(p Processor, job model.Job) (result json.RawMessage, err error) {
	if p == nil {
		return nil, ErrNoProcessor
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job_id", job.ID).Interface("panic", r).
				Str("stack", string(debug.Stack())).Msg("process function panicked")
			err = fmt.Errorf("panic in job %s: %v", job.ID, r)
		}
	}()

	out, err := p.Process(e.baseCtx, job)
	if err != nil {
		return nil, err
	}
	return encodeResult(out)
}

func encodeResult(out any) (json.RawMessage, error) {
	if raw, ok := out.(json.RawMessage); ok && json.Valid(raw) {
		return raw, nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

// rememberLocked keeps a finished job for status lookups.
func (e *Engine) rememberLocked(job *model.Job) {
	if e.opts.history <= 0 {
		return
	}
	e.history = append(e.history, job.Clone())
	if over := len(e.history) - e.opts.history; over > 0 {
		e.history = append(e.history[:0:0], e.history[over:]...)
	}
}
