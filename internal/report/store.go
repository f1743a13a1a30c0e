// Package report persists the record of each command run so its output
// can be retrieved after the call that produced it has returned.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/deixis/userland/internal/executor"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Command is a plain busybox command.
	Command Kind = executor.ModeCommand
	// Proot is a command run inside a filesystem.
	Proot Kind = executor.ModeProot
	// Delete is a recursive deletion.
	Delete Kind = executor.ModeDelete
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *Record) error
	Load(runID string) (*Record, error)
}

// Record holds everything known about one finished run.
type Record struct {
	ID         string        `json:"id"`
	Kind       Kind          `json:"kind"`
	Command    string        `json:"command"`
	Filesystem string        `json:"filesystem,omitempty"`
	Outcome    string        `json:"outcome"`
	Reason     string        `json:"reason,omitempty"` // failed runs only
	Asset      string        `json:"asset,omitempty"`  // missing asset runs only
	Output     []string      `json:"output,omitempty"`
	Truncated  bool          `json:"truncated,omitempty"`
	Dropped    int           `json:"dropped,omitempty"` // lines past the output budget
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
}

// NewRecord fills a Record from a finished run.
func NewRecord(id string, kind Kind, command string, started time.Time, result executor.Result, t *Transcript) *Record {
	rec := &Record{
		ID:       id,
		Kind:     kind,
		Command:  command,
		Outcome:  executor.Outcome(result),
		Started:  started,
		Duration: time.Since(started),
	}
	switch r := result.(type) {
	case executor.FailedExecution:
		rec.Reason = r.Reason
	case executor.MissingExecutionAsset:
		rec.Asset = r.Asset
	}
	if t != nil {
		rec.Output = t.Lines()
		rec.Truncated = t.Truncated()
		rec.Dropped = t.Dropped()
	}
	return rec
}

// Expect returns an error if the run's Kind does not match want.
func (r *Record) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// Succeeded reports whether the run exited 0.
func (r *Record) Succeeded() bool {
	return r.Outcome == executor.OutcomeSuccess
}

// Summary returns a one-line description of the run.
func (r *Record) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s run %s: %s", r.Kind, r.ID, r.Outcome)
	switch {
	case r.Reason != "":
		fmt.Fprintf(&b, " (%s)", r.Reason)
	case r.Asset != "":
		fmt.Fprintf(&b, " (missing %s)", r.Asset)
	}
	fmt.Fprintf(&b, ", %d lines", len(r.Output))
	if r.Truncated {
		fmt.Fprintf(&b, ", truncated (%d dropped)", r.Dropped)
	}
	return b.String()
}

// Tail returns the last n output lines, or all of them if n <= 0.
func (r *Record) Tail(n int) []string {
	if n <= 0 || n >= len(r.Output) {
		return r.Output
	}
	return r.Output[len(r.Output)-n:]
}
