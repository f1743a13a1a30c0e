package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// MaxLineSize is the longest output line Lines will deliver.
const MaxLineSize = 1 << 20

// Process is a live handle on a launched process.
type Process struct {
	id     string
	argv   []string
	cmd    *exec.Cmd
	stdout *os.File
	stdin  io.WriteCloser
	group  bool // leads its own process group

	waitOnce sync.Once
	exitCode int
	waitErr  error
}

// ID returns the unique identifier assigned at launch.
func (p *Process) ID() string { return p.id }

// Pid returns the operating system process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Argv returns a copy of the launched argument vector.
func (p *Process) Argv() []string { return append([]string(nil), p.argv...) }

// Stdin returns the write end of the process's standard input.
func (p *Process) Stdin() io.WriteCloser { return p.stdin }

// Stdout returns the merged standard output and standard error stream.
func (p *Process) Stdout() io.Reader { return p.stdout }

// CloseStdin closes standard input so the process sees EOF.
func (p *Process) CloseStdin() error { return p.stdin.Close() }

// Lines reads the output stream until EOF and calls fn once per line, in
// the order the process produced them. Line terminators are stripped.
func (p *Process) Lines(fn func(line string)) error {
	scanner := bufio.NewScanner(p.stdout)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading output: %w", err)
	}
	return nil
}

// Wait blocks until the process exits and returns its exit code. A
// non-zero exit is not an error. The error is non-nil only when the exit
// status could not be determined, in which case the code is -1. Wait may
// be called more than once.
func (p *Process) Wait() (int, error) {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		if err == nil {
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.exitCode = exitErr.ExitCode()
			return
		}
		p.exitCode = -1
		p.waitErr = fmt.Errorf("waiting for %s: %w", p.argv[0], err)
	})
	return p.exitCode, p.waitErr
}

// Signal returns the name of the signal that terminated the process, or
// "" if it exited normally or has not been waited for.
func (p *Process) Signal() string {
	state := p.cmd.ProcessState
	if state == nil {
		return ""
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return unix.SignalName(ws.Signal())
}

// Kill terminates the process immediately. A process leading its own
// group is killed together with its children.
func (p *Process) Kill() error {
	var err error
	if p.group {
		err = killGroup(p.cmd.Process.Pid)
	} else {
		err = p.cmd.Process.Kill()
	}
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing %s: %w", p.argv[0], err)
	}
	return nil
}

// Close releases the output stream. It does not wait for or kill the
// process.
func (p *Process) Close() error {
	return p.stdout.Close()
}
