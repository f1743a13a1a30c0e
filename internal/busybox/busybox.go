// Package busybox locates the bundled userland assets under a files
// directory and wraps raw commands so they run through the busybox
// toolset, optionally inside the proot sandbox.
//
// Layout under the files directory:
//
//	support/busybox          toolset binary
//	support/proot            sandbox binary
//	support/execInProot.sh   execution script
package busybox

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Asset names as reported to callers when one is missing.
const (
	AssetBusybox         = "busybox"
	AssetProot           = "proot"
	AssetExecutionScript = "execution script"
)

// File names inside the support directory.
const (
	SupportDir          = "support"
	BusyboxFile         = "busybox"
	ProotFile           = "proot"
	ExecutionScriptFile = "execInProot.sh"
)

// ExternalStorageMount is where the external storage directory appears
// inside a sandboxed filesystem.
const ExternalStorageMount = "/storage/internal"

// Wrapper builds argument vectors and environments for a files directory.
type Wrapper struct {
	FilesDir string
}

// New returns a Wrapper rooted at filesDir.
func New(filesDir string) *Wrapper {
	return &Wrapper{FilesDir: filesDir}
}

func supportPath(filesDir, name string) string {
	return filepath.Join(filesDir, SupportDir, name)
}

// BusyboxPresent reports whether an executable busybox exists.
func (w *Wrapper) BusyboxPresent(filesDir string) bool {
	return isExecutable(supportPath(filesDir, BusyboxFile))
}

// ProotPresent reports whether an executable proot exists.
func (w *Wrapper) ProotPresent(filesDir string) bool {
	return isExecutable(supportPath(filesDir, ProotFile))
}

// ExecutionScriptPresent reports whether the execution script exists. It
// is run through busybox sh, so it need not be executable.
func (w *Wrapper) ExecutionScriptPresent(filesDir string) bool {
	return isRegular(supportPath(filesDir, ExecutionScriptFile))
}

// Missing returns the names of the given assets that are absent, in the
// order they were asked for.
func (w *Wrapper) Missing(filesDir string, assets ...string) []string {
	var missing []string
	for _, asset := range assets {
		var present bool
		switch asset {
		case AssetBusybox:
			present = w.BusyboxPresent(filesDir)
		case AssetProot:
			present = w.ProotPresent(filesDir)
		case AssetExecutionScript:
			present = w.ExecutionScriptPresent(filesDir)
		}
		if !present {
			missing = append(missing, asset)
		}
	}
	return missing
}

// AddBusybox wraps command so busybox's shell interprets it.
func (w *Wrapper) AddBusybox(command string) []string {
	return []string{supportPath(w.FilesDir, BusyboxFile), "sh", "-c", command}
}

// BusyboxEnv returns the environment for toolset-only commands.
func (w *Wrapper) BusyboxEnv(filesDir string) map[string]string {
	return map[string]string{
		"LD_LIBRARY_PATH": filepath.Join(filesDir, SupportDir),
		"ROOT_PATH":       filesDir,
	}
}

// AddBusyboxAndProot wraps command so it runs through the execution
// script, which starts proot. The command is split on whitespace; the
// script receives each word as a separate argument.
func (w *Wrapper) AddBusyboxAndProot(command string) []string {
	argv := []string{
		supportPath(w.FilesDir, BusyboxFile),
		"sh",
		supportPath(w.FilesDir, ExecutionScriptFile),
	}
	return append(argv, strings.Fields(command)...)
}

// ProotEnv returns the environment the execution script expects.
func (w *Wrapper) ProotEnv(filesDir, filesystemDir, debugLevel, externalStorageDir string) map[string]string {
	support := filepath.Join(filesDir, SupportDir)
	return map[string]string{
		"LD_LIBRARY_PATH":   support,
		"LIB_PATH":          support,
		"ROOT_PATH":         filesDir,
		"ROOTFS_PATH":       filesystemDir,
		"PROOT_DEBUG_LEVEL": debugLevel,
		"EXTRA_BINDINGS":    "-b " + externalStorageDir + ":" + ExternalStorageMount,
		"OS_VERSION":        kernelRelease(),
	}
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isExecutable(path string) bool {
	return isRegular(path) && unix.Access(path, unix.X_OK) == nil
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
