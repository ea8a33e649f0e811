// Package server accepts producer connections, hands every connection a
// worker identity and forwards submitted payloads to the queue engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"jobflow/internal/engine"
	"jobflow/internal/event"
	"jobflow/internal/wire"
)

// Enqueuer is the part of the engine the server depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload json.RawMessage, opts ...engine.EnqueueOption) (string, error)
}

type Option func(*Server)

// WithIdleTimeout drops connections that send nothing for d. Zero (the
// default) leaves idle connections open indefinitely.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

type Server struct {
	queue       Enqueuer
	bus         event.Bus
	idleTimeout time.Duration

	workerSeq atomic.Int64

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func New(queue Enqueuer, bus event.Bus, opts ...Option) *Server {
	if bus == nil {
		bus = event.Nop{}
	}
	s := &Server{
		queue: queue,
		bus:   bus,
		conns: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on addr and serves until ctx is done or Close is
// called.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. It returns nil after a shutdown and
// the accept error otherwise.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.listener = ln
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Msg("queue TCP server listening")

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Warn().Err(err).Msg("accept timeout")
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.track(conn) {
			conn.Close()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handle(ctx, conn)
		}()
	}
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes open connections and waits for their
// handlers. Jobs already enqueued are not affected.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	workerID := s.workerSeq.Add(1)
	logger := log.With().Int64("worker_id", workerID).Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("worker connected")

	wc := wire.NewConn(conn)
	if err := wc.Write(wire.Hello{WorkerID: workerID}); err != nil {
		logger.Error().Err(err).Msg("send worker id failed")
		return
	}

	for {
		if s.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		payload, err := wc.ReadPayload()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Info().Msg("worker disconnected")
			case errors.Is(err, wire.ErrMalformedFrame):
				logger.Warn().Err(err).Msg("dropping connection after malformed frame")
			case s.isClosed():
			default:
				logger.Error().Err(err).Msg("worker socket error")
			}
			return
		}

		jobID, err := s.queue.Enqueue(ctx, payload, engine.WithWorkerID(workerID))
		if err != nil {
			logger.Error().Err(err).Msg("enqueue failed")
			return
		}

		s.bus.Publish(ctx, event.Event{
			Type:    event.JobQueued,
			Payload: event.QueuedEvent{JobID: jobID, WorkerID: workerID},
		})
		logger.Info().Str("job_id", jobID).Msg("job queued")

		if err := wc.Write(wire.Ack{JobID: jobID, WorkerID: workerID}); err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("send ack failed")
			return
		}
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
