package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func newTestLauncher(t *testing.T) *Launcher {
	t.Helper()
	return &Launcher{Dir: t.TempDir()}
}

func collect(t *testing.T, p *Process) []string {
	t.Helper()
	var lines []string
	if err := p.Lines(func(line string) { lines = append(lines, line) }); err != nil {
		t.Fatalf("Lines: %v", err)
	}
	return lines
}

func TestStart_Success(t *testing.T) {
	l := newTestLauncher(t)
	p, err := l.Start(context.Background(), []string{"echo", "hello"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	lines := collect(t, p)
	code, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if len(lines) != 1 || lines[0] != "hello" {
		t.Errorf("lines = %q, want [hello]", lines)
	}
	if p.ID() == "" {
		t.Error("ID is empty")
	}
}

func TestStart_NonZeroExit(t *testing.T) {
	l := newTestLauncher(t)
	p, err := l.Start(context.Background(), []string{"sh", "-c", "exit 3"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	collect(t, p)
	code, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestStart_BinaryNotFound(t *testing.T) {
	l := newTestLauncher(t)
	_, err := l.Start(context.Background(), []string{"nonexistent-binary-xyz-123"}, "", nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "nonexistent-binary-xyz-123") {
		t.Errorf("error = %q, want to mention the binary name", err)
	}
}

func TestStart_EmptyArgv(t *testing.T) {
	l := newTestLauncher(t)
	_, err := l.Start(context.Background(), nil, "", nil)
	if !errors.Is(err, ErrEmptyArgv) {
		t.Fatalf("err = %v, want ErrEmptyArgv", err)
	}
}

func TestStart_DirOverride(t *testing.T) {
	l := newTestLauncher(t)
	sub := filepath.Join(l.Dir, "subdir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	p, err := l.Start(context.Background(), []string{"pwd"}, sub, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	lines := collect(t, p)
	if _, err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "subdir") {
		t.Errorf("lines = %q, want a path ending in subdir", lines)
	}
}

func TestStart_MissingDir(t *testing.T) {
	l := newTestLauncher(t)
	_, err := l.Start(context.Background(), []string{"echo"}, filepath.Join(l.Dir, "nope"), nil)
	if err == nil {
		t.Fatal("expected error for missing working directory")
	}
}

func TestStart_EnvOverlay(t *testing.T) {
	l := &Launcher{Dir: t.TempDir(), Env: []string{"PATH=" + os.Getenv("PATH"), "GREETING=base", "KEEP=yes"}}
	p, err := l.Start(context.Background(), []string{"sh", "-c", "echo $GREETING $KEEP"}, "", map[string]string{"GREETING": "override"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	lines := collect(t, p)
	if _, err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(lines) != 1 || lines[0] != "override yes" {
		t.Errorf("lines = %q, want [override yes]", lines)
	}
}

func TestStart_StderrMerged(t *testing.T) {
	l := newTestLauncher(t)
	p, err := l.Start(context.Background(), []string{"sh", "-c", "echo out; echo err 1>&2"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	lines := collect(t, p)
	if _, err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(lines) != 2 || lines[0] != "out" || lines[1] != "err" {
		t.Errorf("lines = %q, want [out err]", lines)
	}
}

func TestProcess_Stdin(t *testing.T) {
	l := newTestLauncher(t)
	p, err := l.Start(context.Background(), []string{"cat"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if _, err := io.WriteString(p.Stdin(), "ping\n"); err != nil {
		t.Fatalf("writing stdin: %v", err)
	}
	if err := p.CloseStdin(); err != nil {
		t.Fatalf("CloseStdin: %v", err)
	}

	lines := collect(t, p)
	code, err := p.Wait()
	if err != nil || code != 0 {
		t.Fatalf("Wait = %d, %v; want 0, nil", code, err)
	}
	if len(lines) != 1 || lines[0] != "ping" {
		t.Errorf("lines = %q, want [ping]", lines)
	}
}

func TestProcess_Kill(t *testing.T) {
	l := newTestLauncher(t)
	p, err := l.Start(context.Background(), []string{"sleep", "10"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if err := p.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	code, _ := p.Wait()
	if code == 0 {
		t.Error("exit code = 0 after kill, want non-zero")
	}
	// A second Wait returns the same status.
	again, _ := p.Wait()
	if again != code {
		t.Errorf("second Wait = %d, want %d", again, code)
	}
}

func TestStart_ContextCancelKills(t *testing.T) {
	l := newTestLauncher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	p, err := l.Start(ctx, []string{"sleep", "10"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	code, _ := p.Wait()
	if code == 0 {
		t.Error("exit code = 0 after cancellation, want non-zero")
	}
}

func TestStart_ContextCancelKillsForkedChildren(t *testing.T) {
	l := newTestLauncher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The shell forks sleep, which inherits the output pipe.
	p, err := l.Start(ctx, []string{"sh", "-c", "sleep 4; echo x"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	start := time.Now()
	lines := collect(t, p)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("output drained after %v, want the child killed with the shell", elapsed)
	}
	if len(lines) != 0 {
		t.Errorf("lines = %q, want none", lines)
	}
	code, _ := p.Wait()
	if code != -1 {
		t.Errorf("exit code = %d, want -1", code)
	}
	if got := p.Signal(); got != "SIGKILL" {
		t.Errorf("Signal() = %q, want SIGKILL", got)
	}
}

func TestStart_ProcessGroup(t *testing.T) {
	l := newTestLauncher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	own, err := l.Start(ctx, []string{"cat"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer own.Close()
	shared, err := l.Start(context.Background(), []string{"cat"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer shared.Close()

	if pgid, err := unix.Getpgid(own.Pid()); err != nil || pgid != own.Pid() {
		t.Errorf("cancellable: pgid = %d (%v), want %d", pgid, err, own.Pid())
	}
	if pgid, err := unix.Getpgid(shared.Pid()); err != nil || pgid != unix.Getpgrp() {
		t.Errorf("uncancellable: pgid = %d (%v), want caller's group %d", pgid, err, unix.Getpgrp())
	}

	for _, p := range []*Process{own, shared} {
		_ = p.CloseStdin()
		if code, err := p.Wait(); err != nil || code != 0 {
			t.Errorf("Wait = %d, %v", code, err)
		}
		if got := p.Signal(); got != "" {
			t.Errorf("Signal() = %q after a normal exit", got)
		}
	}
	if got := own.Argv(); len(got) != 1 || got[0] != "cat" {
		t.Errorf("Argv() = %q", got)
	}
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"B=2", "A=1", "malformed", "=skip"}, map[string]string{"A": "x", "C": "3"})
	want := []string{"A=x", "B=2", "C=3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("mergeEnv = %v, want %v", got, want)
	}
}
