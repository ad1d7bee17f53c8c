package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

const manifestName = "brix.toml"

// Manifest is the brix.toml project file.
type Manifest struct {
	Project struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"project"`
	Build struct {
		// Opt is the opt(1) level, e.g. "-O2". Empty means the default.
		Opt string `toml:"opt"`
		// Runtime is the path to the compiled Brix runtime archive.
		Runtime string `toml:"runtime"`
		// Scripts lists the IR files to build into binaries. Empty means
		// every .ll file next to the manifest.
		Scripts []string `toml:"scripts"`
	} `toml:"build"`
}

// LoadManifest reads brix.toml from dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestName)
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if m.Project.Name == "" {
		return nil, fmt.Errorf("%s: project.name is required", path)
	}
	if m.Build.Opt == "" {
		m.Build.Opt = "-O2"
	}
	return &m, nil
}

// Scripts resolves the manifest's script list, defaulting to every .ll
// file in dir.
func (m *Manifest) ScriptPaths(dir string) ([]string, error) {
	if len(m.Build.Scripts) > 0 {
		paths := make([]string, len(m.Build.Scripts))
		for i, s := range m.Build.Scripts {
			paths[i] = filepath.Join(dir, s)
		}
		return paths, nil
	}
	return filepath.Glob(filepath.Join(dir, "*.ll"))
}

// cacheDir is the per-user build cache root: BRIXCACHE when set, otherwise
// the platform's cache convention.
func cacheDir() string {
	if dir := env.Str("BRIXCACHE"); dir != "" {
		return dir
	}

	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if localAppData := env.Str("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "brix")
		}
		return filepath.Join(homeDir, "AppData", "Local", "brix")
	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "brix")
	default:
		if xdg := env.Str("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "brix")
		}
		return filepath.Join(homeDir, ".cache", "brix")
	}
}
