package engine

import "time"

// DefaultRetryDelay is the fixed wait between a failure and the next attempt.
const DefaultRetryDelay = 5 * time.Second

type options struct {
	retryDelay  time.Duration
	maxAttempts int
	history     int
	clock       func() time.Time
}

func defaultOptions() options {
	return options{
		retryDelay: DefaultRetryDelay,
		history:    100,
		clock:      time.Now,
	}
}

func (o options) now() time.Time { return o.clock().UTC() }

// Option is a functional option for configuring the engine.
type Option func(*options)

// WithRetryDelay sets the fixed delay before a failed job is retried. Zero
// makes every failure terminal.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithMaxAttempts caps the number of attempts per job. Zero retries forever.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxAttempts = n
		}
	}
}

// WithHistory sets how many finished jobs are kept in memory for lookups.
func WithHistory(n int) Option {
	return func(o *options) {
		o.history = n
	}
}

// WithClock replaces time.Now. Retry waits still use real timers.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

type enqueueOptions struct {
	workerID int64
}

type EnqueueOption func(*enqueueOptions)

// WithWorkerID tags the job with the connection that submitted it.
func WithWorkerID(id int64) EnqueueOption {
	return func(o *enqueueOptions) {
		o.workerID = id
	}
}
