package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"jobflow/internal/model"
)

// Store persists the pending snapshot of the queue. Save replaces the
// previous snapshot in a single atomic write; Load returns an empty
// slice when nothing has been saved yet.
type Store interface {
	Save(ctx context.Context, jobs []model.Job) error
	Load(ctx context.Context) ([]model.Job, error)
	Close() error
}

// encodeSnapshot is the JSON layout shared by the blob backends.
func encodeSnapshot(jobs []model.Job) ([]byte, error) {
	if jobs == nil {
		jobs = []model.Job{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) ([]model.Job, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Job{}, nil
	}
	var jobs []model.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i := range jobs {
		jobs[i].Data = dropNull(jobs[i].Data)
		jobs[i].Result = dropNull(jobs[i].Result)
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	return jobs, nil
}

func dropNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
