package engine

import "jobflow/internal/model"

type Stats struct {
	Pending   int  `json:"pending"`
	Retrying  int  `json:"retrying"`
	InFlight  bool `json:"inFlight"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Retried   int  `json:"retried"`
}

// Jobs returns copies of the active collection, the in-flight job first.
func (e *Engine) Jobs() []model.Job {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Job, 0, len(e.jobs)+1)
	if e.inflight != nil {
		out = append(out, e.inflight.Clone())
	}
	for _, j := range e.jobs {
		out = append(out, j.Clone())
	}
	return out
}

// Job looks id up in the active collection, then in recent history.
func (e *Engine) Job(id string) (model.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inflight != nil && e.inflight.ID == id {
		return e.inflight.Clone(), true
	}
	for _, j := range e.jobs {
		if j.ID == id {
			return j.Clone(), true
		}
	}
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == id {
			return e.history[i].Clone(), true
		}
	}
	return model.Job{}, false
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		InFlight:  e.inflight != nil,
		Completed: e.counts.completed,
		Failed:    e.counts.failed,
		Retried:   e.counts.retried,
	}
	for _, j := range e.jobs {
		if j.Status == model.StatusFailed {
			s.Retrying++
		} else {
			s.Pending++
		}
	}
	if e.inflight != nil {
		s.Pending++
	}
	return s
}
