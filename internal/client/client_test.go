package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"jobflow/internal/engine"
	"jobflow/internal/server"
)

type stubQueue struct{ got chan json.RawMessage }

func (q stubQueue) Enqueue(_ context.Context, payload json.RawMessage, _ ...engine.EnqueueOption) (string, error) {
	q.got <- payload
	return "job_eve", nil
}

func TestSubmitReturnsReceipt(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	q := stubQueue{got: make(chan json.RawMessage, 1)}
	srv := server.New(q, nil)
	go srv.Serve(context.Background(), ln)
	t.Cleanup(func() { srv.Close() })

	c := New(ln.Addr().String(), WithTimeout(3*time.Second))
	rcpt, err := c.Submit(context.Background(), map[string]any{"name": "Eve", "age": 22})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rcpt.JobID != "job_eve" || rcpt.WorkerID != 1 {
		t.Fatalf("unexpected receipt %+v", rcpt)
	}

	var got struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	if err := json.Unmarshal(<-q.got, &got); err != nil {
		t.Fatalf("decode enqueued payload: %v", err)
	}
	if got.Name != "Eve" || got.Age != 22 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSubmitRejectsNonObject(t *testing.T) {
	c := New("127.0.0.1:1")
	if _, err := c.Submit(context.Background(), []int{1, 2}); !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestSubmitConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = New(addr, WithTimeout(time.Second)).Submit(context.Background(), map[string]string{"a": "b"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

// fakeServer answers one connection with the given lines.
func fakeServer(t *testing.T, lines ...string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		conn.Write([]byte(lines[0] + "\n"))
		if _, err := r.ReadBytes('\n'); err != nil {
			return
		}
		for _, l := range lines[1:] {
			conn.Write([]byte(l + "\n"))
		}
	}()
	return ln.Addr().String()
}

func TestSubmitWorkerIDMismatch(t *testing.T) {
	addr := fakeServer(t, `{"workerId":1}`, `{"jobId":"job_x","workerId":2}`)

	_, err := New(addr, WithTimeout(3*time.Second)).Submit(context.Background(), map[string]string{"a": "b"})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}

func TestSubmitServerClosesBeforeAck(t *testing.T) {
	addr := fakeServer(t, `{"workerId":1}`)

	_, err := New(addr, WithTimeout(3*time.Second)).Submit(context.Background(), map[string]string{"a": "b"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSubmitGarbageAck(t *testing.T) {
	addr := fakeServer(t, `{"workerId":1}`, `definitely not json`)

	_, err := New(addr, WithTimeout(3*time.Second)).Submit(context.Background(), map[string]string{"a": "b"})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}
