package busybox_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/deixis/userland/internal/busybox"
	"github.com/deixis/userland/internal/busybox/busyboxtest"
)

func TestPresence(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		busybox   bool
		proot     bool
		script    bool
	}{
		{"none", nil, false, false, false},
		{"busybox only", []string{busybox.AssetBusybox}, true, false, false},
		{"busybox and proot", []string{busybox.AssetBusybox, busybox.AssetProot}, true, true, false},
		{"all", []string{busybox.AssetBusybox, busybox.AssetProot, busybox.AssetExecutionScript}, true, true, true},
		{"script only", []string{busybox.AssetExecutionScript}, false, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filesDir := t.TempDir()
			if len(tc.installed) > 0 {
				busyboxtest.Install(t, filesDir, tc.installed...)
			}
			w := busybox.New(filesDir)
			if got := w.BusyboxPresent(filesDir); got != tc.busybox {
				t.Errorf("BusyboxPresent = %v, want %v", got, tc.busybox)
			}
			if got := w.ProotPresent(filesDir); got != tc.proot {
				t.Errorf("ProotPresent = %v, want %v", got, tc.proot)
			}
			if got := w.ExecutionScriptPresent(filesDir); got != tc.script {
				t.Errorf("ExecutionScriptPresent = %v, want %v", got, tc.script)
			}
		})
	}
}

func TestBusyboxPresent_RequiresExecutable(t *testing.T) {
	filesDir := t.TempDir()
	support := filepath.Join(filesDir, busybox.SupportDir)
	if err := os.MkdirAll(support, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(support, busybox.BusyboxFile), []byte("not a binary"), 0o644); err != nil {
		t.Fatal(err)
	}
	if busybox.New(filesDir).BusyboxPresent(filesDir) {
		t.Error("BusyboxPresent = true for a non-executable file")
	}
}

func TestBusyboxPresent_Directory(t *testing.T) {
	filesDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(filesDir, busybox.SupportDir, busybox.BusyboxFile), 0o755); err != nil {
		t.Fatal(err)
	}
	if busybox.New(filesDir).BusyboxPresent(filesDir) {
		t.Error("BusyboxPresent = true for a directory")
	}
}

func TestMissing(t *testing.T) {
	filesDir := t.TempDir()
	busyboxtest.Install(t, filesDir, busybox.AssetBusybox)

	w := busybox.New(filesDir)
	got := w.Missing(filesDir, busybox.AssetBusybox, busybox.AssetProot, busybox.AssetExecutionScript)
	want := []string{busybox.AssetProot, busybox.AssetExecutionScript}
	if !slices.Equal(got, want) {
		t.Errorf("Missing = %q, want %q", got, want)
	}
}

func TestAddBusybox(t *testing.T) {
	w := busybox.New("/data/files")
	got := w.AddBusybox("echo hello world")
	want := []string{"/data/files/support/busybox", "sh", "-c", "echo hello world"}
	if !slices.Equal(got, want) {
		t.Errorf("AddBusybox = %q, want %q", got, want)
	}
}

func TestAddBusyboxAndProot(t *testing.T) {
	w := busybox.New("/data/files")
	got := w.AddBusyboxAndProot("  ls   -la /home ")
	want := []string{"/data/files/support/busybox", "sh", "/data/files/support/execInProot.sh", "ls", "-la", "/home"}
	if !slices.Equal(got, want) {
		t.Errorf("AddBusyboxAndProot = %q, want %q", got, want)
	}
}

func TestBusyboxEnv(t *testing.T) {
	env := busybox.New("/data/files").BusyboxEnv("/data/files")
	if env["LD_LIBRARY_PATH"] != "/data/files/support" {
		t.Errorf("LD_LIBRARY_PATH = %q", env["LD_LIBRARY_PATH"])
	}
	if env["ROOT_PATH"] != "/data/files" {
		t.Errorf("ROOT_PATH = %q", env["ROOT_PATH"])
	}
}

func TestProotEnv(t *testing.T) {
	env := busybox.New("/data/files").ProotEnv("/data/files", "/data/files/1", "9", "/sdcard")
	want := map[string]string{
		"LD_LIBRARY_PATH":   "/data/files/support",
		"LIB_PATH":          "/data/files/support",
		"ROOT_PATH":         "/data/files",
		"ROOTFS_PATH":       "/data/files/1",
		"PROOT_DEBUG_LEVEL": "9",
		"EXTRA_BINDINGS":    "-b /sdcard:/storage/internal",
	}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("%s = %q, want %q", k, env[k], v)
		}
	}
	if _, ok := env["OS_VERSION"]; !ok {
		t.Error("OS_VERSION not set")
	}
}
