package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/deixis/userland/internal/busybox"
)

var (
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#9CA3AF") // Medium gray

	headerStyle  = lipgloss.NewStyle().Bold(true)
	nameStyle    = lipgloss.NewStyle().Width(18)
	presentStyle = lipgloss.NewStyle().Foreground(colorSuccess).Width(8)
	missingStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true).Width(8)
	pathStyle    = lipgloss.NewStyle().Foreground(colorMuted)
)

// assetFiles maps each asset to its file under the support directory.
var assetFiles = []struct {
	asset, file string
}{
	{busybox.AssetBusybox, busybox.BusyboxFile},
	{busybox.AssetProot, busybox.ProotFile},
	{busybox.AssetExecutionScript, busybox.ExecutionScriptFile},
}

func assetsMain(args []string) (int, error) {
	var g globalFlags
	fs := newFlagSet("assets", "[flags]", &g)
	if err := fs.Parse(args); err != nil {
		return 0, err
	}

	a, err := newApp(&g)
	if err != nil {
		return 0, err
	}

	missing := a.wrapper.Missing(a.cfg.FilesDir, busybox.AssetBusybox, busybox.AssetProot, busybox.AssetExecutionScript)
	fmt.Print(renderAssets(a.cfg.FilesDir, missing))
	if len(missing) > 0 {
		return exitMissingAsset, nil
	}
	return exitSuccess, nil
}

func renderAssets(filesDir string, missing []string) string {
	var b strings.Builder
	fmt.Fprintln(&b, headerStyle.Render("Files directory:")+" "+filesDir)
	for _, af := range assetFiles {
		state := presentStyle.Render("ok")
		if slices.Contains(missing, af.asset) {
			state = missingStyle.Render("missing")
		}
		path := pathStyle.Render(filepath.Join(filesDir, busybox.SupportDir, af.file))
		fmt.Fprintf(&b, "  %s %s %s\n", nameStyle.Render(af.asset), state, path)
	}
	return b.String()
}
