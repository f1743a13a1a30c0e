// Package executor runs commands through the busybox toolset, optionally
// inside the proot sandbox, and reports each invocation as a Result.
//
// Expected failures (missing assets, non-zero exits, launch errors) are
// never returned as errors; every call yields exactly one Result.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deixis/userland/internal/busybox"
	"github.com/deixis/userland/internal/logging"
	"github.com/deixis/userland/internal/runner"
)

// Preferences supplies the sandbox debug settings.
// Implemented by config.Config.
type Preferences interface {
	ProotDebuggingEnabled() bool
	ProotDebuggingLevel() string
	ProotDebugLogLocation() string
}

// Wrapper probes for assets and wraps raw commands.
// Implemented by busybox.Wrapper.
type Wrapper interface {
	BusyboxPresent(filesDir string) bool
	ProotPresent(filesDir string) bool
	ExecutionScriptPresent(filesDir string) bool
	AddBusybox(command string) []string
	BusyboxEnv(filesDir string) map[string]string
	AddBusyboxAndProot(command string) []string
	ProotEnv(filesDir, filesystemDir, debugLevel, externalStorageDir string) map[string]string
}

// Launcher starts processes. Implemented by runner.Launcher.
type Launcher interface {
	Start(ctx context.Context, argv []string, dir string, env map[string]string) (*runner.Process, error)
}

// Observer receives one call per invocation, once its Result is known.
type Observer interface {
	ObserveExecution(mode, outcome string, elapsed time.Duration)
}

// Listener receives process output one line at a time.
type Listener func(line string)

// Mode names used in logs and metrics.
const (
	ModeCommand = "command"
	ModeProot   = "proot"
	ModeDelete  = "delete"
)

// Executor runs commands for one files directory. It holds no mutable
// state and is safe for concurrent use, except that concurrent
// debug-logged sandbox runs share, and corrupt, the same log file.
type Executor struct {
	filesDir           string
	externalStorageDir string
	prefs              Preferences
	wrapper            Wrapper
	launcher           Launcher
	logger             *slog.Logger
	observer           Observer
	timeout            time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithLauncher replaces the default runner.Launcher.
func WithLauncher(l Launcher) Option {
	return func(e *Executor) { e.launcher = l }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// WithTimeout bounds invocations that run to completion. Processes handed
// back as OngoingExecution are never subject to it.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// New returns an Executor for filesDir.
func New(filesDir, externalStorageDir string, prefs Preferences, wrapper Wrapper, opts ...Option) *Executor {
	e := &Executor{
		filesDir:           filesDir,
		externalStorageDir: externalStorageDir,
		prefs:              prefs,
		wrapper:            wrapper,
		launcher:           &runner.Launcher{},
		logger:             logging.Discard(),
		observer:           nopObserver{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// FilesDir returns the directory holding support assets and filesystems.
func (e *Executor) FilesDir() string { return e.filesDir }

// CommandOption configures a single ExecuteCommand call.
type CommandOption func(*request)

// InDir runs the command in dir instead of the files directory.
func InDir(dir string) CommandOption {
	return func(r *request) { r.dir = dir }
}

// ProotOption configures a single ExecuteProotCommand call.
type ProotOption func(*request)

// WithLogGroup schedules the debug log write on g instead of joining it
// before returning. The log is complete, and any write error reported,
// once g.Wait returns.
func WithLogGroup(g *errgroup.Group) ProotOption {
	return func(r *request) { r.group = g }
}

// ExecuteCommand runs command through busybox and waits for it. Each
// output line is passed to listener as it is produced.
func (e *Executor) ExecuteCommand(ctx context.Context, command string, listener Listener, opts ...CommandOption) Result {
	req := request{command: command, listener: listener}
	for _, o := range opts {
		o(&req)
	}
	return e.execute(ctx, e.busyboxMode(ModeCommand), req)
}

// ExecuteProotCommand runs command inside the filesystem named
// filesystemDirName under the files directory. Entries in env override
// the sandbox environment.
//
// When shouldTerminate is false the process is returned as an
// OngoingExecution as soon as it starts, and ctx no longer affects it.
// Otherwise the call waits for the process. If sandbox debugging is
// enabled, output goes to the debug log instead of listener.
func (e *Executor) ExecuteProotCommand(ctx context.Context, command, filesystemDirName string, shouldTerminate bool, env map[string]string, listener Listener, opts ...ProotOption) Result {
	req := request{
		command:  command,
		env:      env,
		ongoing:  !shouldTerminate,
		listener: listener,
	}
	for _, o := range opts {
		o(&req)
	}
	return e.execute(ctx, e.prootMode(filesystemDirName), req)
}

// request is one invocation's inputs.
type request struct {
	command  string
	dir      string
	env      map[string]string
	ongoing  bool
	listener Listener
	group    *errgroup.Group
}

// asset is a precondition checked before launch.
type asset struct {
	name    string
	present func(filesDir string) bool
}

// mode describes one wrapping layer: what must exist, how the command
// line is built and which environment it runs with.
type mode struct {
	name     string
	assets   []asset
	argv     func(command string) []string
	env      func() map[string]string
	debugLog func() string // empty path means no redirection
}

func (e *Executor) busyboxMode(name string) mode {
	return mode{
		name:     name,
		assets:   []asset{{busybox.AssetBusybox, e.wrapper.BusyboxPresent}},
		argv:     e.wrapper.AddBusybox,
		env:      func() map[string]string { return e.wrapper.BusyboxEnv(e.filesDir) },
		debugLog: func() string { return "" },
	}
}

func (e *Executor) prootMode(filesystemDirName string) mode {
	return mode{
		name: ModeProot,
		assets: []asset{
			{busybox.AssetBusybox, e.wrapper.BusyboxPresent},
			{busybox.AssetProot, e.wrapper.ProotPresent},
			{busybox.AssetExecutionScript, e.wrapper.ExecutionScriptPresent},
		},
		argv: e.wrapper.AddBusyboxAndProot,
		env: func() map[string]string {
			filesystemDir := filepath.Join(e.filesDir, filesystemDirName)
			return e.wrapper.ProotEnv(e.filesDir, filesystemDir, e.prefs.ProotDebuggingLevel(), e.externalStorageDir)
		},
		debugLog: func() string {
			if !e.prefs.ProotDebuggingEnabled() {
				return ""
			}
			return e.prefs.ProotDebugLogLocation()
		},
	}
}

func (e *Executor) execute(ctx context.Context, m mode, req request) Result {
	start := time.Now()
	logger := e.logger.With("mode", m.name)

	result := e.dispatch(ctx, m, req, logger)

	outcome := Outcome(result)
	elapsed := time.Since(start)
	e.observer.ObserveExecution(m.name, outcome, elapsed)

	switch r := result.(type) {
	case SuccessfulExecution:
		logger.Info("execution finished", "outcome", outcome, "duration", elapsed)
	case FailedExecution:
		logger.Warn("execution failed", "outcome", outcome, "reason", r.Reason, "duration", elapsed)
	case MissingExecutionAsset:
		logger.Warn("execution asset missing", "outcome", outcome, "asset", r.Asset)
	case OngoingExecution:
		logger.Info("execution handed off", "outcome", outcome, "run_id", r.Process.ID(), "pid", r.Process.Pid())
	}
	return result
}

func (e *Executor) dispatch(ctx context.Context, m mode, req request, logger *slog.Logger) Result {
	for _, a := range m.assets {
		if !a.present(e.filesDir) {
			return MissingExecutionAsset{Asset: a.name}
		}
	}

	argv := m.argv(req.command)
	env := maps.Clone(m.env())
	if env == nil {
		env = make(map[string]string, len(req.env))
	}
	maps.Copy(env, req.env)

	dir := req.dir
	if dir == "" {
		dir = e.filesDir
	}

	if req.ongoing {
		// The caller owns the process from here on; nothing we were
		// given may cancel it.
		ctx = context.WithoutCancel(ctx)
	} else if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.timeout, fmt.Errorf("command timed out after %s", e.timeout))
		defer cancel()
	}

	// The debug log is opened before launch so an unwritable location
	// fails without spawning anything.
	var log *debugLog
	if !req.ongoing {
		if path := m.debugLog(); path != "" {
			var err error
			if log, err = createDebugLog(path); err != nil {
				return FailedExecution{Reason: err.Error()}
			}
		}
	}

	proc, err := e.launcher.Start(ctx, argv, dir, env)
	if err != nil {
		if log != nil {
			_ = log.Close()
		}
		return FailedExecution{Reason: err.Error()}
	}
	logger.Debug("process started", "run_id", proc.ID(), "pid", proc.Pid(), "argv", argv, "dir", dir)

	if req.ongoing {
		return OngoingExecution{Process: proc}
	}

	// Nothing feeds a terminating process's input.
	_ = proc.CloseStdin()

	if log != nil {
		return redirect(ctx, proc, log, req.group)
	}
	return collect(ctx, proc, req.listener)
}

// collect streams output to listener, then waits.
func collect(ctx context.Context, proc *runner.Process, listener Listener) Result {
	defer proc.Close()
	if listener == nil {
		listener = func(string) {}
	}

	readErr := proc.Lines(listener)
	if readErr != nil {
		// Unread output could keep the process blocked on a full pipe.
		_ = proc.Kill()
	}
	code, waitErr := proc.Wait()
	return classify(code, proc.Signal(), context.Cause(ctx), waitErr, readErr)
}

// redirect writes output to the debug log. Without a group the write is
// joined before returning; with one, the group owns it.
func redirect(ctx context.Context, proc *runner.Process, log *debugLog, group *errgroup.Group) Result {
	write := func() error {
		defer proc.Close()
		err := log.drain(proc)
		if err != nil {
			_ = proc.Kill()
		}
		return err
	}

	if group != nil {
		group.Go(write)
		code, waitErr := proc.Wait()
		return classify(code, proc.Signal(), context.Cause(ctx), waitErr, nil)
	}

	var g errgroup.Group
	g.Go(write)
	code, waitErr := proc.Wait()
	readErr := g.Wait()
	return classify(code, proc.Signal(), context.Cause(ctx), waitErr, readErr)
}

type nopObserver struct{}

func (nopObserver) ObserveExecution(string, string, time.Duration) {}
