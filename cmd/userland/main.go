// Command userland runs commands through a bundled busybox toolset,
// optionally inside a proot filesystem.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/deixis/userland"
)

// Exit codes mirror the executor result.
const (
	exitSuccess      = 0
	exitFailure      = 1
	exitUsage        = 2
	exitMissingAsset = 3
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("userland: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var (
		code int
		err  error
	)
	switch cmd {
	case "exec":
		code, err = execMain(args)
	case "proot":
		code, err = prootMain(args)
	case "shell":
		code, err = shellMain(args)
	case "rm":
		code, err = rmMain(args)
	case "assets":
		code, err = assetsMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(userland.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "userland: unknown command %q\n", cmd)
		usage()
		os.Exit(exitUsage)
	}

	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(exitSuccess)
	}
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(os.Stderr, "userland %s: %v\n", cmd, err)
		os.Exit(exitUsage)
	}
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: userland <command> [flags] [args]

Commands:
  exec        Run a command through busybox sh
  proot       Run a command inside a filesystem
  shell       Attach to an interactive shell inside a filesystem
  rm          Recursively delete a path without following symbolic links
  assets      Report which execution assets are installed
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "userland <command> -h" for command-specific flags.`)
}

// usageError reports bad arguments.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}
