package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/deixis/userland/internal/busybox"
	"github.com/deixis/userland/internal/config"
	"github.com/deixis/userland/internal/executor"
	"github.com/deixis/userland/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dir       string
	logFormat string
	logLevel  string
	timeout   time.Duration
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.dir, "dir", "C", "", "directory to search upward from for "+config.FileName+" (default: current directory)")
	fs.StringVar(&g.logFormat, "log-format", "auto", "log format: auto, text or json")
	fs.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.DurationVar(&g.timeout, "timeout", 0, "override the configured timeout (e.g. 5m)")
}

func newFlagSet(name, synopsis string, g *globalFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	// Flags after the first argument belong to the command being run.
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: userland %s %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	g.register(fs)
	return fs
}

// app is the wiring shared by the executing subcommands.
type app struct {
	cfg     *config.Config
	wrapper *busybox.Wrapper
	exec    *executor.Executor
	logger  *slog.Logger
}

func newApp(g *globalFlags, opts ...executor.Option) (*app, error) {
	dir := g.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		dir = wd
	}

	loaded, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	logger := logging.NewForFile(os.Stderr, g.logFormat, g.logLevel)
	if loaded.Path != "" {
		logger.Debug("config loaded", "path", loaded.Path)
	}

	timeout := cfg.Timeout()
	if g.timeout > 0 {
		timeout = g.timeout
	}

	wrapper := busybox.New(cfg.FilesDir)
	opts = append([]executor.Option{executor.WithLogger(logger), executor.WithTimeout(timeout)}, opts...)
	return &app{
		cfg:     cfg,
		wrapper: wrapper,
		exec:    executor.New(cfg.FilesDir, cfg.ExternalStorageDir, cfg, wrapper, opts...),
		logger:  logger,
	}, nil
}

// exitCode maps a finished run to the process exit status.
func exitCode(r executor.Result) int {
	switch r.(type) {
	case executor.SuccessfulExecution:
		return exitSuccess
	case executor.FailedExecution:
		return exitFailure
	case executor.MissingExecutionAsset:
		return exitMissingAsset
	case executor.OngoingExecution:
		return exitSuccess
	default:
		panic(fmt.Sprintf("userland: unknown result %T", r))
	}
}

// finish prints the result of a run that did not succeed and returns
// its exit code.
func finish(r executor.Result) int {
	if _, ok := r.(executor.SuccessfulExecution); !ok {
		fmt.Fprintf(os.Stderr, "userland: %s\n", executor.Describe(r))
	}
	return exitCode(r)
}

// parseEnv turns KEY=VALUE pairs into a map.
func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, usagef("invalid environment entry %q, want KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}

func printLine(line string) {
	fmt.Println(line)
}
