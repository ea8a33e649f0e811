// Package client submits payloads to a running submission server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"jobflow/internal/wire"
)

var (
	ErrTransport = errors.New("client: transport error")
	ErrProtocol  = errors.New("client: protocol error")
	ErrNotObject = errors.New("client: payload must encode to a JSON object")
)

// Receipt is the server's acknowledgement of one submission.
type Receipt struct {
	JobID    string `json:"jobId"`
	WorkerID int64  `json:"workerId"`
}

type Option func(*Client)

// WithTimeout bounds each Submit call when the context has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

type Client struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

func New(addr string, opts ...Option) *Client {
	c := &Client{addr: addr, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit opens a connection, reads the assigned worker id, sends payload
// and waits for the acknowledgement. payload may be any JSON-encodable
// value that encodes to an object; json.RawMessage is sent as is.
func (c *Client) Submit(ctx context.Context, payload any) (Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode payload: %w", err)
	}
	if len(body) == 0 || body[0] != '{' {
		return Receipt{}, ErrNotObject
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: dial %s: %v", ErrTransport, c.addr, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	wc := wire.NewConn(conn)

	var hello wire.Hello
	if err := wc.Read(&hello); err != nil {
		return Receipt{}, c.readErr("worker id", err)
	}
	log.Debug().Int64("worker_id", hello.WorkerID).Str("addr", c.addr).Msg("connected to queue server")

	if err := wc.Write(json.RawMessage(body)); err != nil {
		return Receipt{}, fmt.Errorf("%w: send payload: %v", ErrTransport, err)
	}

	var ack wire.Ack
	if err := wc.Read(&ack); err != nil {
		return Receipt{}, c.readErr("ack", err)
	}
	if ack.WorkerID != hello.WorkerID {
		return Receipt{}, fmt.Errorf("%w: ack for worker %d on connection of worker %d", ErrProtocol, ack.WorkerID, hello.WorkerID)
	}
	if ack.JobID == "" {
		return Receipt{}, fmt.Errorf("%w: ack without job id", ErrProtocol)
	}
	return Receipt{JobID: ack.JobID, WorkerID: ack.WorkerID}, nil
}

func (c *Client) readErr(what string, err error) error {
	if errors.Is(err, wire.ErrMalformedFrame) {
		return fmt.Errorf("%w: read %s: %v", ErrProtocol, what, err)
	}
	return fmt.Errorf("%w: read %s: %v", ErrTransport, what, err)
}
