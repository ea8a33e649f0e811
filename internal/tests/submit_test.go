package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"jobflow/internal/client"
	"jobflow/internal/event"
	"jobflow/internal/model"
)

func TestSubmitEveOverTCP(t *testing.T) {
	st, _ := newStore(t)
	bus := event.NewBus()
	queued := make(chan event.QueuedEvent, 1)
	bus.Subscribe(event.JobQueued, func(_ context.Context, e event.Event) error {
		queued <- e.Payload.(event.QueuedEvent)
		return nil
	})
	completed := collect(bus, event.JobCompleted)

	eng := startEngine(t, st, bus, greet)
	addr := startServer(t, eng, bus)

	rcpt, err := client.New(addr, client.WithTimeout(3*time.Second)).
		Submit(context.Background(), map[string]any{"name": "Eve", "age": 22})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if rcpt.WorkerID != 1 {
		t.Errorf("Expected workerId 1, got %d", rcpt.WorkerID)
	}

	select {
	case ev := <-queued:
		if ev.JobID != rcpt.JobID || ev.WorkerID != 1 {
			t.Errorf("Unexpected queued event %+v for receipt %+v", ev, rcpt)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("No job.queued event")
	}

	j := waitFor(t, completed, "Eve to complete")
	if j.ID != rcpt.JobID {
		t.Fatalf("Completed job %s, expected %s", j.ID, rcpt.JobID)
	}
	if j.WorkerID != 1 {
		t.Errorf("Expected job tagged with worker 1, got %d", j.WorkerID)
	}
	var result string
	if err := json.Unmarshal(j.Result, &result); err != nil || result != "Hello, Eve!" {
		t.Errorf("Unexpected result %s (%v)", j.Result, err)
	}
}

func TestSecondConnectionGetsNextWorkerID(t *testing.T) {
	st, _ := newStore(t)
	bus := event.NewBus()
	eng := startEngine(t, st, bus, greet)
	addr := startServer(t, eng, bus)

	c := client.New(addr, client.WithTimeout(3*time.Second))
	for want := int64(1); want <= 2; want++ {
		rcpt, err := c.Submit(context.Background(), map[string]string{"name": "Alice"})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if rcpt.WorkerID != want {
			t.Errorf("Expected workerId %d, got %d", want, rcpt.WorkerID)
		}
	}
}

func TestSubmittedJobIsPersistedBeforeProcessing(t *testing.T) {
	st, _ := newStore(t)
	bus := event.NewBus()
	release := make(chan struct{})
	defer close(release)

	blocking := greetAfter(release)
	eng := startEngine(t, st, bus, blocking)
	addr := startServer(t, eng, bus)

	rcpt, err := client.New(addr).Submit(context.Background(), map[string]string{"name": "Alice"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	jobs, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != rcpt.JobID || jobs[0].Status != model.StatusPending {
		t.Fatalf("Expected one pending job %s in snapshot, got %+v", rcpt.JobID, jobs)
	}
}
