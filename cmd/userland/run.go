package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/deixis/userland/internal/executor"
)

// --- exec ---

func execMain(args []string) (int, error) {
	var g globalFlags
	fs := newFlagSet("exec", "[flags] <command>", &g)
	workDir := fs.String("workdir", "", "working directory (default: the files directory)")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() == 0 {
		return 0, usagef("missing command")
	}

	a, err := newApp(&g)
	if err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []executor.CommandOption
	if *workDir != "" {
		opts = append(opts, executor.InDir(*workDir))
	}
	return finish(a.exec.ExecuteCommand(ctx, strings.Join(fs.Args(), " "), printLine, opts...)), nil
}

// --- proot ---

func prootMain(args []string) (int, error) {
	var g globalFlags
	fs := newFlagSet("proot", "-f <filesystem> [flags] <command>", &g)
	filesystem := fs.StringP("filesystem", "f", "", "filesystem directory name under the files directory")
	envFlag := fs.StringArrayP("env", "e", nil, "set KEY=VALUE in the sandbox environment (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *filesystem == "" {
		return 0, usagef("missing --filesystem")
	}
	if fs.NArg() == 0 {
		return 0, usagef("missing command")
	}
	env, err := parseEnv(*envFlag)
	if err != nil {
		return 0, err
	}

	a, err := newApp(&g)
	if err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result := a.exec.ExecuteProotCommand(ctx, strings.Join(fs.Args(), " "), *filesystem, true, env, printLine)
	if a.cfg.ProotDebuggingEnabled() {
		a.logger.Info("output written to debug log", "path", a.cfg.ProotDebugLogLocation())
	}
	return finish(result), nil
}

// --- rm ---

func rmMain(args []string) (int, error) {
	var g globalFlags
	fs := newFlagSet("rm", "[flags] <path>...", &g)
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() == 0 {
		return 0, usagef("missing path")
	}

	a, err := newApp(&g)
	if err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The worst status wins: a missing asset over a failure over success.
	code := exitSuccess
	for _, path := range fs.Args() {
		if c := finish(a.exec.RecursivelyDelete(ctx, path)); c > code {
			code = c
		}
	}
	return code, nil
}
