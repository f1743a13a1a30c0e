package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/userland/internal/busybox"
)

type assetsParams struct{}

func (h *handler) assetsHandler(ctx context.Context, req *mcp.CallToolRequest, _ assetsParams) (*mcp.CallToolResult, any, error) {
	all := []string{busybox.AssetBusybox, busybox.AssetProot, busybox.AssetExecutionScript}
	missing := h.assets.Missing(h.exec.FilesDir(), all...)

	var b strings.Builder
	fmt.Fprintf(&b, "Files directory: %s\n", h.exec.FilesDir())
	fmt.Fprintln(&b)
	for _, asset := range all {
		state := "present"
		if slices.Contains(missing, asset) {
			state = "missing"
		}
		fmt.Fprintf(&b, "  %s: %s\n", asset, state)
	}
	fmt.Fprintln(&b)

	switch {
	case len(missing) == 0:
		fmt.Fprintln(&b, "All assets present.")
	case slices.Contains(missing, busybox.AssetBusybox):
		fmt.Fprintln(&b, "No command can run until busybox is installed.")
	default:
		fmt.Fprintln(&b, "ula_exec and ula_delete are available; ula_proot_exec is not.")
	}
	return textResult(b.String())
}
