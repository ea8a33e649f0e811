package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"jobflow/internal/engine"
	"jobflow/internal/event"
	"jobflow/internal/model"
)

// greetAfter behaves like greet once release is closed.
func greetAfter(release <-chan struct{}) engine.Processor {
	return engine.ProcessorFunc(func(ctx context.Context, j model.Job) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return greet(ctx, j)
	})
}

func TestAliceCompletesAndLeavesSnapshot(t *testing.T) {
	st, _ := newStore(t)
	bus := event.NewBus()
	completed := collect(bus, event.JobCompleted)
	eng := startEngine(t, st, bus, greet)

	id, err := eng.Enqueue(context.Background(), json.RawMessage(`{"name":"Alice"}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	j := waitFor(t, completed, "Alice to complete")
	if j.ID != id || j.Status != model.StatusCompleted || j.Error != nil {
		t.Fatalf("Unexpected job %+v", j)
	}
	if string(j.Result) != `"Hello, Alice!"` {
		t.Fatalf("Expected result Hello, Alice!, got %s", j.Result)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		jobs, err := st.Load(context.Background())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(jobs) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Completed job still in snapshot: %+v", jobs)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBoomStaysQueuedWithFutureRetry(t *testing.T) {
	st, _ := newStore(t)
	bus := event.NewBus()
	retrying := collect(bus, event.JobRetrying)
	eng := startEngine(t, st, bus, greet)

	before := time.Now()
	id, err := eng.Enqueue(context.Background(), json.RawMessage(`{"name":"boom"}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	j := waitFor(t, retrying, "boom to fail")
	if j.ID != id || j.Status != model.StatusFailed {
		t.Fatalf("Unexpected job %+v", j)
	}
	if j.Error == nil || j.Error.Message != "boom" {
		t.Fatalf("Expected error boom, got %+v", j.Error)
	}
	if j.RetryAt == nil || !j.RetryAt.After(before.Add(4*time.Second)) {
		t.Fatalf("Expected retryTime about 5s out, got %v", j.RetryAt)
	}

	active, ok := eng.Job(id)
	if !ok || active.Status != model.StatusFailed {
		t.Fatalf("Expected job to remain in the active collection, got %+v", active)
	}
}

func TestRestartResumesPendingJobs(t *testing.T) {
	st, path := newStore(t)
	release := make(chan struct{})
	defer close(release)

	first := startEngine(t, st, nil, greetAfter(release))
	id, err := first.Enqueue(context.Background(), json.RawMessage(`{"name":"Alice"}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	// Bob waits behind the blocked Alice
	second, err := first.Enqueue(context.Background(), json.RawMessage(`{"name":"Bob"}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// abandon the first engine while Alice is still in flight
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	first.Stop(ctx)
	cancel()

	bus := event.NewBus()
	completed := collect(bus, event.JobCompleted)
	startEngine(t, reopen(t, path), bus, greet)

	seen := map[string]bool{}
	for len(seen) < 2 {
		j := waitFor(t, completed, "resumed jobs")
		seen[j.ID] = true
	}
	if !seen[id] || !seen[second] {
		t.Fatalf("Expected %s and %s to complete after restart, got %v", id, second, seen)
	}
}

func TestZeroRetryDelayIsTerminal(t *testing.T) {
	st, _ := newStore(t)
	bus := event.NewBus()
	failed := collect(bus, event.JobFailed)
	eng := startEngine(t, st, bus, greet, engine.WithRetryDelay(0))

	id, err := eng.Enqueue(context.Background(), json.RawMessage(`{"name":"boom"}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	j := waitFor(t, failed, "terminal failure")
	if j.ID != id || j.RetryAt != nil {
		t.Fatalf("Expected terminal failure without retryTime, got %+v", j)
	}
	if s := eng.Stats(); s.Pending != 0 || s.Retrying != 0 || s.Failed != 1 {
		t.Fatalf("Unexpected stats %+v", s)
	}
}
