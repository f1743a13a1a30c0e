package executor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deixis/userland/internal/runner"
)

// debugLog is the sandbox diagnostics file for one invocation.
type debugLog struct {
	path string
	f    *os.File
}

// createDebugLog truncates path, creating it and its parent directories
// if needed.
func createDebugLog(path string) (*debugLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating debug log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening debug log: %w", err)
	}
	return &debugLog{path: path, f: f}, nil
}

// drain writes every output line of proc to the log, newline-terminated,
// then closes the log. It keeps reading after a write error so the
// process is never blocked on a full pipe, and returns the first error.
func (l *debugLog) drain(proc *runner.Process) error {
	w := bufio.NewWriter(l.f)
	var writeErr error
	readErr := proc.Lines(func(line string) {
		if writeErr != nil {
			return
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			writeErr = fmt.Errorf("writing debug log: %w", err)
		}
	})
	if writeErr == nil {
		if err := w.Flush(); err != nil {
			writeErr = fmt.Errorf("writing debug log: %w", err)
		}
	}
	closeErr := l.Close()

	switch {
	case readErr != nil:
		return readErr
	case writeErr != nil:
		return writeErr
	case closeErr != nil:
		return fmt.Errorf("closing debug log: %w", closeErr)
	}
	return nil
}

func (l *debugLog) Close() error {
	return l.f.Close()
}
