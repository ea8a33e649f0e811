package event

import (
	"time"

	"jobflow/internal/model"
)

type Type string

const (
	// Network submissions
	JobQueued Type = "job.queued"

	// Job lifecycle
	JobEnqueued  Type = "job.enqueued"
	JobCompleted Type = "job.completed"
	JobRetrying  Type = "job.retrying"
	JobFailed    Type = "job.failed"
)

type Event struct {
	Type      Type
	Timestamp time.Time
	Payload   any
}

// QueuedEvent is the payload of JobQueued.
type QueuedEvent struct {
	JobID    string
	WorkerID int64
}

// JobEvent is the payload of the lifecycle events. Job is a copy taken
// at the moment of the transition.
type JobEvent struct {
	Job model.Job
}
