package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type rw struct {
	io.Reader
	io.Writer
}

func TestHelloAndAckEncoding(t *testing.T) {
	var buf bytes.Buffer
	c := NewConn(rw{Reader: strings.NewReader(""), Writer: &buf})

	if err := c.Write(Hello{WorkerID: 1}); err != nil {
		t.Fatalf("Failed to write hello: %v", err)
	}
	if err := c.Write(Ack{JobID: "job_1", WorkerID: 1}); err != nil {
		t.Fatalf("Failed to write ack: %v", err)
	}

	want := "{\"workerId\":1}\n{\"jobId\":\"job_1\",\"workerId\":1}\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestReadPayloadSequence(t *testing.T) {
	in := `{"name":"Eve","age":22}` + "\n" + `{"name":"Bob"}`
	c := NewConn(rw{Reader: strings.NewReader(in), Writer: io.Discard})

	first, err := c.ReadPayload()
	if err != nil {
		t.Fatalf("Failed to read payload: %v", err)
	}
	if string(first) != `{"name":"Eve","age":22}` {
		t.Errorf("Unexpected payload %s", first)
	}
	second, err := c.ReadPayload()
	if err != nil {
		t.Fatalf("Failed to read payload: %v", err)
	}
	if string(second) != `{"name":"Bob"}` {
		t.Errorf("Unexpected payload %s", second)
	}
	if _, err := c.ReadPayload(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestReadPayloadRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"syntax":     `{"name":`,
		"non-object": `[1,2,3]`,
		"garbage":    `hello`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewConn(rw{Reader: strings.NewReader(in), Writer: io.Discard})
			if _, err := c.ReadPayload(); !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("Expected ErrMalformedFrame, got %v", err)
			}
		})
	}
}
