package store

import (
	"context"

	"jobflow/internal/model"
)

// StateRetrying labels failed jobs that are waiting for their next attempt.
const StateRetrying = "retrying"

// State returns the label used when listing a snapshot job.
func State(j model.Job) string {
	if j.Status == model.StatusFailed && j.RetryAt != nil {
		return StateRetrying
	}
	return string(j.Status)
}

// ListJobs returns the snapshot, optionally filtered by State.
func ListJobs(ctx context.Context, st Store, state string) ([]model.Job, error) {
	jobs, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	if state == "" {
		return jobs, nil
	}

	var result []model.Job
	for _, j := range jobs {
		if State(j) == state {
			result = append(result, j)
		}
	}
	return result, nil
}

// QueueStatus counts the snapshot jobs per State.
func QueueStatus(ctx context.Context, st Store) (map[string]int, error) {
	jobs, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := map[string]int{
		string(model.StatusPending): 0,
		StateRetrying:               0,
	}
	for _, j := range jobs {
		stats[State(j)]++
	}
	return stats, nil
}
