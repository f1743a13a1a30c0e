package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/userland/internal/executor"
	"github.com/deixis/userland/internal/report"
)

type execParams struct {
	Command string `json:"command" jsonschema:"shell command, interpreted by busybox sh -c"`
	Dir     string `json:"dir,omitempty" jsonschema:"working directory. Defaults to the files directory."`
}

func (h *handler) execHandler(ctx context.Context, req *mcp.CallToolRequest, params execParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Command) == "" {
		return errorResult("command is required")
	}

	r := h.newRun(report.Command, params.Command)
	var opts []executor.CommandOption
	if params.Dir != "" {
		opts = append(opts, executor.InDir(params.Dir))
	}
	result := h.exec.ExecuteCommand(ctx, params.Command, r.transcript.Listen, opts...)

	return textResult(formatRun(h.finish(ctx, r, result), ""))
}

type prootExecParams struct {
	Filesystem string            `json:"filesystem" jsonschema:"filesystem directory name under the files directory (e.g. 1)"`
	Command    string            `json:"command" jsonschema:"command to run inside the filesystem, split on whitespace"`
	Env        map[string]string `json:"env,omitempty" jsonschema:"environment entries overriding the sandbox environment"`
}

func (h *handler) prootExecHandler(ctx context.Context, req *mcp.CallToolRequest, params prootExecParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Command) == "" {
		return errorResult("command is required")
	}
	if err := checkFilesystemName(params.Filesystem); err != nil {
		return errorResult(err.Error())
	}

	r := h.newRun(report.Proot, params.Command)
	r.filesystem = params.Filesystem
	result := h.exec.ExecuteProotCommand(ctx, params.Command, params.Filesystem, true, params.Env, r.transcript.Listen)

	var note string
	if h.cfg.ProotDebuggingEnabled() {
		note = fmt.Sprintf("Output written to debug log %s.", h.cfg.ProotDebugLogLocation())
	}
	return textResult(formatRun(h.finish(ctx, r, result), note))
}

// checkFilesystemName rejects names that would resolve outside the files
// directory.
func checkFilesystemName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("filesystem is required")
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return fmt.Errorf("invalid filesystem name %q", name)
	}
	return nil
}

func formatRun(rec *report.Record, note string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status: %s\n", status(rec.Outcome))
	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	switch {
	case rec.Reason != "":
		fmt.Fprintf(&b, "Reason: %s\n", rec.Reason)
	case rec.Asset != "":
		fmt.Fprintf(&b, "Missing: %s\n", rec.Asset)
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Action: nothing was started. Check installed assets with ula_assets.")
		return b.String()
	}
	fmt.Fprintln(&b)

	if note != "" {
		fmt.Fprintln(&b, note)
		return b.String()
	}

	writeOutput(&b, rec, tailLines)
	if len(rec.Output) > tailLines || rec.Truncated {
		fmt.Fprintf(&b, "\nInspect with ula_inspect(run_id=%q).\n", rec.ID)
	}
	return b.String()
}

// writeOutput writes the last n output lines of rec, or all of them if
// n <= 0.
func writeOutput(b *strings.Builder, rec *report.Record, n int) {
	if len(rec.Output) == 0 {
		fmt.Fprintln(b, "Output: (none)")
		return
	}
	lines := rec.Tail(n)
	if len(lines) < len(rec.Output) {
		fmt.Fprintf(b, "Output (last %d of %d lines):\n", len(lines), len(rec.Output))
	} else {
		fmt.Fprintf(b, "Output (%d lines):\n", len(lines))
	}
	for _, line := range lines {
		fmt.Fprintf(b, "    %s\n", line)
	}
	if rec.Truncated {
		fmt.Fprintf(b, "    ... output truncated at the configured max_output, %d more lines dropped\n", rec.Dropped)
	}
}
