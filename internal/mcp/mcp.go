// Package mcp provides the userland MCP server, exposing the executor
// as tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/userland"
	"github.com/deixis/userland/internal/config"
	"github.com/deixis/userland/internal/executor"
	"github.com/deixis/userland/internal/logging"
	"github.com/deixis/userland/internal/report"
)

//go:embed instructions.md
var Instructions string

// tailLines is how many output lines a tool result shows. The rest is
// available through ula_inspect.
const tailLines = 50

// AssetProber reports missing execution assets. Implemented by
// busybox.Wrapper.
type AssetProber interface {
	Missing(filesDir string, assets ...string) []string
}

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg    *config.Config
	exec   *executor.Executor
	assets AssetProber
	store  report.Store
	logger *slog.Logger
}

// ServerOption configures the server.
type ServerOption func(*handler)

// WithLogger sets the logger used for store failures.
func WithLogger(l *slog.Logger) ServerOption {
	return func(h *handler) { h.logger = l }
}

// NewServer creates an MCP server with all userland tools registered.
func NewServer(cfg *config.Config, exec *executor.Executor, assets AssetProber, store report.Store, opts ...ServerOption) *mcp.Server {
	h := &handler{
		cfg:    cfg,
		exec:   exec,
		assets: assets,
		store:  store,
		logger: logging.Discard(),
	}
	for _, o := range opts {
		o(h)
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "userland", Version: userland.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ula_assets",
		Description: "Report which execution assets (busybox, proot, execution script) are installed.",
	}, h.assetsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ula_exec",
		Description: `Run a shell command through busybox sh and wait for it.

The command runs in the files directory unless dir is given. The result shows the
status and the last output lines; the full output is kept for ula_inspect.`,
	}, h.execHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ula_proot_exec",
		Description: `Run a command inside a proot filesystem and wait for it.

filesystem names a directory under the files directory. The command is split on
whitespace. env entries override the sandbox environment.`,
	}, h.prootExecHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ula_delete",
		Description: "Recursively delete a path. Symbolic links are removed, never followed.",
	}, h.deleteHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ula_inspect",
		Description: "Show the full stored output of an earlier ula_exec, ula_proot_exec or ula_delete run.",
	}, h.inspectHandler)

	return s
}

// run is one tool invocation being recorded.
type run struct {
	id         string
	kind       report.Kind
	command    string
	filesystem string
	started    time.Time
	transcript *report.Transcript
}

func (h *handler) newRun(kind report.Kind, command string) *run {
	return &run{
		id:         uuid.New().String(),
		kind:       kind,
		command:    command,
		started:    time.Now(),
		transcript: report.NewTranscript(h.cfg.MaxOutputBytes()),
	}
}

// finish stores the run's record. Store failures are logged, not returned.
func (h *handler) finish(ctx context.Context, r *run, result executor.Result) *report.Record {
	rec := report.NewRecord(r.id, r.kind, r.command, r.started, result, r.transcript)
	rec.Filesystem = r.filesystem
	if err := h.store.Save(rec); err != nil {
		h.logger.WarnContext(ctx, "saving run record", "run_id", rec.ID, "error", err)
	}
	return rec
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}

func status(outcome string) string {
	switch outcome {
	case executor.OutcomeSuccess:
		return "PASS"
	case executor.OutcomeFailure:
		return "FAIL"
	case executor.OutcomeMissingAsset:
		return "MISSING ASSET"
	default:
		return strings.ToUpper(outcome)
	}
}
