package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

const stopFile = ".jobflow-stop"

func ShouldStop(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, stopFile))
	return err == nil
}

func CreateStopFile(dir string) error {
	return os.WriteFile(filepath.Join(dir, stopFile), []byte("stop"), 0644)
}

func RemoveStopFile(dir string) {
	_ = os.Remove(filepath.Join(dir, stopFile))
}

// WatchStopFile closes the returned channel once the stop file appears.
func WatchStopFile(ctx context.Context, dir string, interval time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ShouldStop(dir) {
					close(ch)
					return
				}
			}
		}
	}()
	return ch
}
