// Package busyboxtest installs stand-in userland assets for tests. The
// stand-ins dispatch to the host's own utilities: busybox runs its
// arguments as a command, and the execution script runs the wrapped
// command without a sandbox.
package busyboxtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deixis/userland/internal/busybox"
)

const (
	busyboxScript = "#!/bin/sh\nexec \"$@\"\n"
	prootScript   = "#!/bin/sh\nexec \"$@\"\n"
	execScript    = "exec \"$@\"\n"
)

// Install writes the named assets (busybox.AssetBusybox and friends)
// under filesDir/support. With no names, all three are installed.
func Install(t testing.TB, filesDir string, assets ...string) {
	t.Helper()
	if len(assets) == 0 {
		assets = []string{busybox.AssetBusybox, busybox.AssetProot, busybox.AssetExecutionScript}
	}

	support := filepath.Join(filesDir, busybox.SupportDir)
	if err := os.MkdirAll(support, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, asset := range assets {
		var name, body string
		var mode os.FileMode = 0o755
		switch asset {
		case busybox.AssetBusybox:
			name, body = busybox.BusyboxFile, busyboxScript
		case busybox.AssetProot:
			name, body = busybox.ProotFile, prootScript
		case busybox.AssetExecutionScript:
			name, body, mode = busybox.ExecutionScriptFile, execScript, 0o644
		default:
			t.Fatalf("unknown asset %q", asset)
		}
		if err := os.WriteFile(filepath.Join(support, name), []byte(body), mode); err != nil {
			t.Fatal(err)
		}
	}
}
