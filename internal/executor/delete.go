package executor

import (
	"context"
	"path/filepath"
	"strings"
)

// RecursivelyDelete removes path and, if it is a directory, everything
// under it. Symbolic links are removed, never followed: a link to a
// directory is unlinked and the directory it points to is untouched.
// A path that does not exist is a SuccessfulExecution. path is cleaned
// first, so "link/" removes the link rather than its target's contents.
//
// The removal runs as busybox "rm -rf", so failures such as permission
// errors surface as FailedExecution like any other command.
func (e *Executor) RecursivelyDelete(ctx context.Context, path string) Result {
	if strings.TrimSpace(path) == "" {
		return FailedExecution{Reason: "refusing to delete an empty path"}
	}
	path = filepath.Clean(path)
	if path == "/" {
		return FailedExecution{Reason: "refusing to delete /"}
	}
	req := request{command: "rm -rf -- " + shellQuote(path)}
	return e.execute(ctx, e.busyboxMode(ModeDelete), req)
}

// shellQuote quotes s as a single sh word.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
