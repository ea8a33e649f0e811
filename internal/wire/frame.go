// Package wire defines the messages exchanged between the submission
// server and its clients. Every message is one JSON value followed by a
// newline on the TCP stream.
package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrMalformedFrame = errors.New("wire: malformed frame")

// Hello is sent by the server as soon as a connection is accepted.
type Hello struct {
	WorkerID int64 `json:"workerId"`
}

// Ack confirms that a submitted payload was enqueued.
type Ack struct {
	JobID    string `json:"jobId"`
	WorkerID int64  `json:"workerId"`
}

// Conn wraps a stream with a JSON encoder and decoder.
type Conn struct {
	enc *json.Encoder
	dec *json.Decoder
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		enc: json.NewEncoder(rw),
		dec: json.NewDecoder(bufio.NewReader(rw)),
	}
}

func (c *Conn) Write(v any) error {
	return c.enc.Encode(v)
}

// Read decodes the next frame into v. io.EOF is returned untouched so
// callers can tell a clean close from a broken frame.
func (c *Conn) Read(v any) error {
	err := c.dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return err
}

// ReadPayload reads the next frame and checks it is a JSON object.
func (c *Conn) ReadPayload() (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Read(&raw); err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrMalformedFrame)
	}
	return raw, nil
}
