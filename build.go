package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

const cacheSchemaVersion = 1

// artifact is one cached build result, keyed by the content hash of the
// linked IR plus the flags that shaped it.
type artifact struct {
	Hash   string    `msgpack:"hash"`
	Binary string    `msgpack:"binary"`
	Built  time.Time `msgpack:"built"`
}

// buildCache is the msgpack-encoded artifact index on disk. A file lock
// guards it so concurrent builds on the same cache do not corrupt it.
type buildCache struct {
	Version int                 `msgpack:"version"`
	Entries map[string]artifact `msgpack:"entries"`

	path string
	lock *flock.Flock
}

func openBuildCache(root string) (*buildCache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	bc := &buildCache{
		Version: cacheSchemaVersion,
		Entries: make(map[string]artifact),
		path:    filepath.Join(root, "artifacts.msgpack"),
		lock:    flock.New(filepath.Join(root, "artifacts.lock")),
	}
	if err := bc.lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock build cache: %w", err)
	}

	data, err := os.ReadFile(bc.path)
	if os.IsNotExist(err) {
		return bc, nil
	}
	if err != nil {
		bc.lock.Unlock()
		return nil, err
	}
	if err := msgpack.Unmarshal(data, bc); err != nil || bc.Version != cacheSchemaVersion {
		// A stale or unreadable index rebuilds from scratch.
		bc.Version = cacheSchemaVersion
		bc.Entries = make(map[string]artifact)
	}
	if bc.Entries == nil {
		bc.Entries = make(map[string]artifact)
	}
	return bc, nil
}

func (bc *buildCache) Close() error {
	data, err := msgpack.Marshal(bc)
	if err == nil {
		err = os.WriteFile(bc.path, data, 0o644)
	}
	if uerr := bc.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// scriptHash hashes everything that determines the binary: the IR bytes,
// the optimization level, the runtime archive path and the platform.
func scriptHash(irPath, opt, runtimeLib string) (string, error) {
	data, err := os.ReadFile(irPath)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte(opt))
	h.Write([]byte(runtimeLib))
	h.Write([]byte(runtime.GOOS))
	h.Write([]byte(runtime.GOARCH))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// buildAll compiles every script IR of the project to a binary. Scripts
// are independent, so they fan out across one goroutine per CPU.
func buildAll(m *Manifest, dir string) error {
	scripts, err := m.ScriptPaths(dir)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		return fmt.Errorf("no script IR files found in %s", dir)
	}

	cache, err := openBuildCache(filepath.Join(cacheDir(), m.Project.Name))
	if err != nil {
		return err
	}
	defer cache.Close()

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	results := make([]artifact, len(scripts))
	for i, script := range scripts {
		i, script := i, script
		g.Go(func() error {
			art, err := buildOne(script, dir, m, cache)
			if err != nil {
				return fmt.Errorf("build %s: %w", script, err)
			}
			results[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, script := range scripts {
		cache.Entries[script] = results[i]
	}
	return nil
}

// buildOne runs the opt/llc/clang pipeline for a single script, skipping
// work when the cache already has a binary for the same hash.
func buildOne(irPath, dir string, m *Manifest, cache *buildCache) (artifact, error) {
	hash, err := scriptHash(irPath, m.Build.Opt, m.Build.Runtime)
	if err != nil {
		return artifact{}, err
	}

	name := filepath.Base(irPath)
	name = name[:len(name)-len(filepath.Ext(name))]
	binFile := filepath.Join(dir, name)

	if prev, ok := cache.Entries[irPath]; ok && prev.Hash == hash {
		if _, err := os.Stat(prev.Binary); err == nil {
			return prev, nil
		}
	}

	workDir := filepath.Join(cacheDir(), m.Project.Name, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return artifact{}, err
	}
	optFile := filepath.Join(workDir, name+".opt.ll")
	objFile := filepath.Join(workDir, name+".o")

	optCmd := exec.Command("opt", m.Build.Opt, "-S", irPath, "-o", optFile)
	if output, err := optCmd.CombinedOutput(); err != nil {
		return artifact{}, fmt.Errorf("optimization failed: %w\n%s", err, output)
	}

	llcCmd := exec.Command("llc", "-filetype=obj", "-relocation-model=pic", optFile, "-o", objFile)
	if output, err := llcCmd.CombinedOutput(); err != nil {
		return artifact{}, fmt.Errorf("llc failed: %w\n%s", err, output)
	}

	linkArgs := []string{"-fuse-ld=lld"}
	if runtime.GOOS == "darwin" {
		linkArgs = append(linkArgs, "-Wl,-dead_strip")
	} else {
		linkArgs = append(linkArgs, "-Wl,--gc-sections")
	}
	linkArgs = append(linkArgs, objFile)
	if m.Build.Runtime != "" {
		linkArgs = append(linkArgs, m.Build.Runtime)
	}
	linkArgs = append(linkArgs, "-lm", "-o", binFile)

	clangCmd := exec.Command("clang", linkArgs...)
	if output, err := clangCmd.CombinedOutput(); err != nil {
		return artifact{}, fmt.Errorf("linking failed: %w\n%s", err, output)
	}

	return artifact{Hash: hash, Binary: binFile, Built: time.Now()}, nil
}
