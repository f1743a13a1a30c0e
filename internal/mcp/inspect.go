package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a ula_exec, ula_proot_exec or ula_delete result"`
	Tail  int    `json:"tail,omitempty" jsonschema:"only show the last N lines. Default: all."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n", rec.ID, rec.Kind)
	if rec.Filesystem != "" {
		fmt.Fprintf(&b, "Filesystem: %s\n", rec.Filesystem)
	}
	fmt.Fprintf(&b, "Command: %s\n", rec.Command)
	fmt.Fprintf(&b, "Started: %s (%s)\n", rec.Started.Format(time.RFC3339), rec.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Status: %s\n", status(rec.Outcome))
	switch {
	case rec.Reason != "":
		fmt.Fprintf(&b, "Reason: %s\n", rec.Reason)
	case rec.Asset != "":
		fmt.Fprintf(&b, "Missing: %s\n", rec.Asset)
	}
	fmt.Fprintln(&b)
	writeOutput(&b, rec, params.Tail)

	return textResult(b.String())
}
