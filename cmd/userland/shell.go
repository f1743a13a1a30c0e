package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/term"

	"github.com/deixis/userland/internal/executor"
	"github.com/deixis/userland/internal/runner"
)

func shellMain(args []string) (int, error) {
	var g globalFlags
	fs := newFlagSet("shell", "-f <filesystem> [flags] [command]", &g)
	filesystem := fs.StringP("filesystem", "f", "", "filesystem directory name under the files directory")
	envFlag := fs.StringArrayP("env", "e", nil, "set KEY=VALUE in the sandbox environment (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *filesystem == "" {
		return 0, usagef("missing --filesystem")
	}
	env, err := parseEnv(*envFlag)
	if err != nil {
		return 0, err
	}

	command := strings.Join(fs.Args(), " ")
	if command == "" {
		command = defaultShell(term.IsTerminal(int(os.Stdin.Fd())))
	}

	a, err := newApp(&g)
	if err != nil {
		return 0, err
	}

	result := a.exec.ExecuteProotCommand(context.Background(), command, *filesystem, false, env, nil)
	ongoing, ok := result.(executor.OngoingExecution)
	if !ok {
		return finish(result), nil
	}

	a.logger.Debug("shell attached", "run_id", ongoing.Process.ID(), "argv", ongoing.Process.Argv())

	// Interrupts typed at the terminal reach the sandboxed shell directly,
	// as it shares our process group.
	signal.Ignore(os.Interrupt)

	code, err := attach(ongoing.Process, os.Stdin, os.Stdout)
	if err != nil {
		return 0, fmt.Errorf("shell: %w", err)
	}
	return code, nil
}

// defaultShell is the command run when none is given. An interactive
// shell prints prompts even though its input is a pipe.
func defaultShell(interactive bool) string {
	if interactive {
		return "sh -i"
	}
	return "sh"
}

// attach copies in to the process and its output to out until it exits,
// then returns its exit code. Copying from in is abandoned once the
// process exits.
func attach(proc *runner.Process, in io.Reader, out io.Writer) (int, error) {
	defer proc.Close()

	go func() {
		_, _ = io.Copy(proc.Stdin(), in)
		_ = proc.CloseStdin()
	}()

	_, copyErr := io.Copy(out, proc.Stdout())
	code, err := proc.Wait()
	if err != nil {
		return 0, err
	}
	if copyErr != nil {
		return 0, fmt.Errorf("copying output: %w", copyErr)
	}
	if code < 0 {
		// Terminated by a signal.
		code = exitFailure
	}
	return code, nil
}
