package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/deixis/userland/internal/runner"
)

// Result is the outcome of one invocation. It is exactly one of
// SuccessfulExecution, FailedExecution, MissingExecutionAsset or
// OngoingExecution; no other package can add variants.
type Result interface {
	result()
}

// SuccessfulExecution means the process ran to completion and exited 0.
type SuccessfulExecution struct{}

// FailedExecution means the process exited non-zero, could not be
// launched, or its output could not be read or logged.
type FailedExecution struct {
	Reason string
}

// MissingExecutionAsset means a required asset was absent. No process was
// started.
type MissingExecutionAsset struct {
	Asset string
}

// OngoingExecution carries a process that is still running. The caller
// owns it: reading its output, writing its input, waiting for and
// killing it.
type OngoingExecution struct {
	Process *runner.Process
}

func (SuccessfulExecution) result()   {}
func (FailedExecution) result()       {}
func (MissingExecutionAsset) result() {}
func (OngoingExecution) result()      {}

// Outcome labels, stable for logs, metrics and run records.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeMissingAsset = "missing_asset"
	OutcomeOngoing      = "ongoing"
)

// Outcome returns the label for r.
func Outcome(r Result) string {
	switch r.(type) {
	case SuccessfulExecution:
		return OutcomeSuccess
	case FailedExecution:
		return OutcomeFailure
	case MissingExecutionAsset:
		return OutcomeMissingAsset
	case OngoingExecution:
		return OutcomeOngoing
	default:
		panic(fmt.Sprintf("executor: unknown result %T", r))
	}
}

// Describe returns a one-line human-readable summary of r.
func Describe(r Result) string {
	switch r := r.(type) {
	case SuccessfulExecution:
		return "command succeeded"
	case FailedExecution:
		return r.Reason
	case MissingExecutionAsset:
		return fmt.Sprintf("missing execution asset: %s", r.Asset)
	case OngoingExecution:
		return fmt.Sprintf("command running (pid %d)", r.Process.Pid())
	default:
		panic(fmt.Sprintf("executor: unknown result %T", r))
	}
}

// classify maps a finished process to a Result. signal names the signal
// that killed it, if any. cause is the reason the run's context ended,
// nil while it is live. readErr covers failures draining output or
// writing it to the debug log.
func classify(code int, signal string, cause, waitErr, readErr error) Result {
	switch {
	case waitErr != nil:
		return FailedExecution{Reason: waitErr.Error()}
	case readErr != nil:
		return FailedExecution{Reason: readErr.Error()}
	case code == 0:
		return SuccessfulExecution{}
	case cause != nil:
		return FailedExecution{Reason: interrupted(cause)}
	case signal != "":
		return FailedExecution{Reason: "command killed by " + signal}
	default:
		return FailedExecution{Reason: fmt.Sprintf("command failed with exit code %d", code)}
	}
}

func interrupted(cause error) string {
	switch {
	case errors.Is(cause, context.Canceled):
		return "command cancelled"
	case errors.Is(cause, context.DeadlineExceeded):
		return "command timed out"
	default:
		return cause.Error()
	}
}
