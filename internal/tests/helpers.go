package tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"jobflow/internal/engine"
	"jobflow/internal/event"
	"jobflow/internal/model"
	"jobflow/internal/server"
	"jobflow/internal/store"
)

// newStore creates a fresh SQLite snapshot store in a temporary directory.
func newStore(t *testing.T) (*store.SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, path
}

// greet answers "Hello, <name>!" and fails with "boom" when name is boom.
var greet = engine.ProcessorFunc(func(_ context.Context, j model.Job) (any, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(j.Data, &p); err != nil {
		return nil, err
	}
	if p.Name == "boom" {
		return nil, errors.New("boom")
	}
	return fmt.Sprintf("Hello, %s!", p.Name), nil
})

// startEngine runs an engine on st and stops it when the test ends.
func startEngine(t *testing.T, st store.Store, bus event.Bus, p engine.Processor, opts ...engine.Option) *engine.Engine {
	t.Helper()
	eng := engine.New(st, bus, opts...)
	eng.SetProcessFunc(p)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start engine: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Stop(ctx)
	})
	return eng
}

// startServer serves eng on a loopback port and returns its address.
func startServer(t *testing.T, eng server.Enqueuer, bus event.Bus) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	srv := server.New(eng, bus)
	go srv.Serve(context.Background(), ln)
	t.Cleanup(func() { srv.Close() })
	return ln.Addr().String()
}

// collect forwards the job carried by every event of type typ.
func collect(bus event.Bus, typ event.Type) <-chan model.Job {
	ch := make(chan model.Job, 16)
	bus.Subscribe(typ, func(_ context.Context, e event.Event) error {
		if je, ok := e.Payload.(event.JobEvent); ok {
			ch <- je.Job
		}
		return nil
	})
	return ch
}

func waitFor(t *testing.T, ch <-chan model.Job, what string) model.Job {
	t.Helper()
	select {
	case j := <-ch:
		return j
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out waiting for %s", what)
		return model.Job{}
	}
}

// reopen opens a second store on an existing database file.
func reopen(t *testing.T, path string) *store.SQLite {
	t.Helper()
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
