package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/userland/internal/report"
)

type deleteParams struct {
	Path string `json:"path" jsonschema:"absolute path to delete, with everything beneath it"`
}

func (h *handler) deleteHandler(ctx context.Context, req *mcp.CallToolRequest, params deleteParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return errorResult("path is required")
	}

	r := h.newRun(report.Delete, params.Path)
	result := h.exec.RecursivelyDelete(ctx, params.Path)

	return textResult(formatRun(h.finish(ctx, r, result), ""))
}
