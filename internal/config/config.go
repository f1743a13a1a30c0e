// Package config loads the optional .userland YAML preferences file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the preferences file.
const FileName = ".userland"

// Default values for execution preferences.
const (
	DefaultTimeout           = 10 * time.Minute
	DefaultMaxOutput         = 1 << 20 // 1 MB
	DefaultProotDebugLevel   = "-1"
	DefaultProotDebugLogName = "PRoot_Debug_Log"
)

// Environment overrides applied after the file is read.
const (
	EnvFilesDir   = "USERLAND_FILES_DIR"
	EnvProotDebug = "USERLAND_PROOT_DEBUG"
)

// Config holds the parsed .userland preferences.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version            int         `yaml:"version"`
	FilesDir           string      `yaml:"files_dir"`            // holds support/ and every filesystem
	ExternalStorageDir string      `yaml:"external_storage_dir"` // bound at /storage/internal
	RawTimeout         string      `yaml:"timeout"`              // e.g. "10m", "30s"
	RawMaxOutput       int         `yaml:"max_output"`           // bytes per run transcript
	Proot              ProotConfig `yaml:"proot"`
}

// ProotConfig controls sandbox diagnostics.
type ProotConfig struct {
	Debug      bool   `yaml:"debug"`       // redirect sandboxed output to DebugLog
	DebugLevel string `yaml:"debug_level"` // passed through as PROOT_DEBUG_LEVEL
	DebugLog   string `yaml:"debug_log"`   // default: <external_storage_dir>/PRoot_Debug_Log
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ProotDebuggingEnabled reports whether sandboxed output goes to the debug log.
func (c *Config) ProotDebuggingEnabled() bool {
	return c.Proot.Debug
}

// ProotDebuggingLevel returns the sandbox debug verbosity.
func (c *Config) ProotDebuggingLevel() string {
	if c.Proot.DebugLevel != "" {
		return c.Proot.DebugLevel
	}
	return DefaultProotDebugLevel
}

// ProotDebugLogLocation returns the debug log path.
func (c *Config) ProotDebugLogLocation() string {
	if c.Proot.DebugLog != "" {
		return c.Proot.DebugLog
	}
	return filepath.Join(c.ExternalStorageDir, DefaultProotDebugLogName)
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .userland; falls back to the start dir
	Path   string // path of the file read, empty when defaults were used
}

// Load reads the .userland file, walking upward from dir until one is
// found. If none exists, a default Config rooted at dir is returned.
// Relative paths in the file resolve against the file's directory.
// Unset directories default to <root>/files and <root>/storage.
func Load(dir string) (*LoadResult, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	res := &LoadResult{Config: &Config{}, Root: dir}
	if path, ok := findFile(dir); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
		if err := yaml.Unmarshal(data, res.Config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
		res.Root = filepath.Dir(path)
		res.Path = path
	}

	if err := applyEnv(res.Config); err != nil {
		return nil, err
	}
	res.Config.resolvePaths(res.Root)
	return res, nil
}

func (c *Config) resolvePaths(root string) {
	if c.FilesDir == "" {
		c.FilesDir = "files"
	}
	if c.ExternalStorageDir == "" {
		c.ExternalStorageDir = "storage"
	}
	c.FilesDir = absUnder(root, c.FilesDir)
	c.ExternalStorageDir = absUnder(root, c.ExternalStorageDir)
	if c.Proot.DebugLog != "" {
		c.Proot.DebugLog = absUnder(root, c.Proot.DebugLog)
	}
}

func absUnder(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func applyEnv(c *Config) error {
	if v := os.Getenv(EnvFilesDir); v != "" {
		c.FilesDir = v
	}
	if v := os.Getenv(EnvProotDebug); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvProotDebug, err)
		}
		c.Proot.Debug = enabled
	}
	return nil
}

// findFile walks upward from dir looking for a .userland file.
func findFile(dir string) (string, bool) {
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
