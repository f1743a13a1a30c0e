// Package runner launches processes for the userland executor. Standard
// output and standard error are merged into a single pipe owned by the
// returned Process, so output can be drained independently of Wait.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ErrEmptyArgv is returned by Start when no program is given.
var ErrEmptyArgv = errors.New("empty argv")

// Launcher starts processes. The zero value is usable: processes start in
// the current directory and inherit the host environment.
type Launcher struct {
	Dir string   // default working directory when Start is given ""
	Env []string // base environment in "KEY=value" form; nil means os.Environ()
}

// Start launches argv in dir with env layered over the launcher's base
// environment. The first element of argv is resolved via PATH unless it
// contains a path separator. The returned Process is running; the caller
// must eventually call Wait and Close.
//
// A process started with a cancellable ctx leads its own process group,
// and cancelling ctx kills the whole group, including any children it
// forked. A ctx that can never be cancelled leaves the process in the
// caller's group, so terminal signals reach it. Callers that hand the
// process off to someone else should pass such a context.
func (l *Launcher) Start(ctx context.Context, argv []string, dir string, env map[string]string) (*Process, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyArgv
	}

	dir, err := l.resolveDir(dir)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = mergeEnv(l.baseEnv(), env)
	group := ctx.Done() != nil
	if group {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Cancel = func() error { return killGroup(cmd.Process.Pid) }
	}

	out, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating output pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = out.Close()
		_ = w.Close()
		return nil, fmt.Errorf("creating input pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = out.Close()
		_ = w.Close()
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}
	// The child holds its own copy of the write end; dropping ours lets
	// readers see EOF once the child exits.
	_ = w.Close()

	return &Process{
		id:     uuid.New().String(),
		argv:   append([]string(nil), argv...),
		cmd:    cmd,
		stdout: out,
		stdin:  stdin,
		group:  group,
	}, nil
}

// killGroup sends SIGKILL to the process group led by pid.
func killGroup(pid int) error {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	return nil
}

func (l *Launcher) resolveDir(dir string) (string, error) {
	if dir == "" {
		dir = l.Dir
	}
	if dir == "" {
		return "", nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %q is not a directory", dir)
	}
	return dir, nil
}

func (l *Launcher) baseEnv() []string {
	if l.Env != nil {
		return l.Env
	}
	return os.Environ()
}

// mergeEnv overlays env on base. Keys in env win. The result is sorted so
// the child sees a deterministic environment.
func mergeEnv(base []string, env map[string]string) []string {
	merged := make(map[string]string, len(base)+len(env))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
