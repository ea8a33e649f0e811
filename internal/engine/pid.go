package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const pidFile = ".jobflow-pid"

func WritePID(dir string, pid int) error {
	if err := os.WriteFile(filepath.Join(dir, pidFile), []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// ReadPID returns the PID recorded by a running server. A missing file
// wraps fs.ErrNotExist.
func ReadPID(dir string) (int, error) {
	b, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func RemovePID(dir string) {
	_ = os.Remove(filepath.Join(dir, pidFile))
}
