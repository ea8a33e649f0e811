package model

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// JobError is the recorded failure of the last attempt.
type JobError struct {
	Message string `json:"message"`
}

func (e *JobError) Error() string { return e.Message }

type Job struct {
	ID          string          `json:"id"`
	Data        json.RawMessage `json:"data"`
	Status      Status          `json:"status"`
	Result      json.RawMessage `json:"result"`
	Error       *JobError       `json:"error"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt"`
	RetryAt     *time.Time      `json:"retryTime"`
	WorkerID    int64           `json:"workerId,omitempty"`
	Attempts    int             `json:"attempts"`
}

func NewJob(id string, data json.RawMessage, now time.Time) *Job {
	return &Job{
		ID:        id,
		Data:      data,
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// Complete moves the job to the terminal completed state.
func (j *Job) Complete(result json.RawMessage, now time.Time) {
	j.Status = StatusCompleted
	j.Result = result
	j.Error = nil
	j.RetryAt = nil
	j.CompletedAt = &now
}

// Fail records err as the outcome of the last attempt. A positive
// retryDelay schedules the next attempt; zero makes the failure terminal.
func (j *Job) Fail(err error, now time.Time, retryDelay time.Duration) {
	j.Status = StatusFailed
	j.Result = nil
	j.Error = &JobError{Message: err.Error()}
	j.CompletedAt = &now
	if retryDelay > 0 {
		at := now.Add(retryDelay)
		j.RetryAt = &at
	} else {
		j.RetryAt = nil
	}
}

// Pending reports whether the job still awaits a (re)attempt.
func (j *Job) Pending() bool {
	return j.Status == StatusPending || (j.Status == StatusFailed && j.RetryAt != nil)
}

// Ready reports whether the job may be handed to a processor at now.
func (j *Job) Ready(now time.Time) bool {
	return j.Pending() && (j.RetryAt == nil || !j.RetryAt.After(now))
}

// Clone returns a deep copy so callers outside the engine cannot mutate it.
func (j *Job) Clone() Job {
	c := *j
	c.Data = cloneRaw(j.Data)
	c.Result = cloneRaw(j.Result)
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.RetryAt != nil {
		t := *j.RetryAt
		c.RetryAt = &t
	}
	return c
}

// PendingOnly filters jobs down to the subset that belongs in a snapshot.
func PendingOnly(jobs []Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Pending() {
			out = append(out, j)
		}
	}
	return out
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	c := make(json.RawMessage, len(b))
	copy(c, b)
	return c
}
