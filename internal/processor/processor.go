// Package processor holds the processing functions the jobflow binary can
// install on the engine.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"jobflow/internal/engine"
	"jobflow/internal/model"
)

var ErrNoCommand = errors.New("processor: payload has no command")

// Shell runs the payload's "command" field through Shell -lc and returns
// the trimmed stdout.
type Shell struct {
	Shell string
}

func NewShell(shell string) *Shell {
	if shell == "" {
		shell = "bash"
	}
	return &Shell{Shell: shell}
}

type shellPayload struct {
	Command string `json:"command"`
}

func (s *Shell) Process(ctx context.Context, job model.Job) (any, error) {
	var p shellPayload
	if err := json.Unmarshal(job.Data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if strings.TrimSpace(p.Command) == "" {
		return nil, ErrNoCommand
	}

	log.Debug().Str("job_id", job.ID).Str("command", p.Command).Msg("exec shell command")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Shell, "-lc", p.Command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Echo logs the payload and returns it unchanged.
type Echo struct{}

func (Echo) Process(_ context.Context, job model.Job) (any, error) {
	log.Info().Str("job_id", job.ID).RawJSON("data", job.Data).Msg("echo job")
	return job.Data, nil
}

// ByName resolves the processor configured under processor.name.
func ByName(name, shell string) (engine.Processor, error) {
	switch name {
	case "", "shell":
		return NewShell(shell), nil
	case "echo":
		return Echo{}, nil
	default:
		return nil, fmt.Errorf("unknown processor %q", name)
	}
}
