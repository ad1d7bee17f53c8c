package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildCacheRoundTrip(t *testing.T) {
	root := t.TempDir()

	bc, err := openBuildCache(root)
	require.NoError(t, err)
	bc.Entries["main.ll"] = artifact{Hash: "abc", Binary: "/tmp/main", Built: time.Now()}
	require.NoError(t, bc.Close())

	bc2, err := openBuildCache(root)
	require.NoError(t, err)
	defer bc2.Close()
	require.Equal(t, "abc", bc2.Entries["main.ll"].Hash)
	require.Equal(t, "/tmp/main", bc2.Entries["main.ll"].Binary)
}

func TestBuildCacheRejectsStaleSchema(t *testing.T) {
	root := t.TempDir()

	bc, err := openBuildCache(root)
	require.NoError(t, err)
	bc.Version = cacheSchemaVersion + 1
	bc.Entries["main.ll"] = artifact{Hash: "old"}
	require.NoError(t, bc.Close())

	bc2, err := openBuildCache(root)
	require.NoError(t, err)
	defer bc2.Close()
	require.Empty(t, bc2.Entries)
}

func TestBuildCacheSurvivesCorruptIndex(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "artifacts.msgpack"), []byte("not msgpack"), 0o644))

	bc, err := openBuildCache(root)
	require.NoError(t, err)
	defer bc.Close()
	require.Empty(t, bc.Entries)
}

func TestScriptHashStable(t *testing.T) {
	dir := t.TempDir()
	ir := filepath.Join(dir, "main.ll")
	require.NoError(t, os.WriteFile(ir, []byte("define i32 @main() { ret i32 0 }"), 0o644))

	h1, err := scriptHash(ir, "-O2", "")
	require.NoError(t, err)
	h2, err := scriptHash(ir, "-O2", "")
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestScriptHashChangesWithInputs(t *testing.T) {
	dir := t.TempDir()
	ir := filepath.Join(dir, "main.ll")
	require.NoError(t, os.WriteFile(ir, []byte("define i32 @main() { ret i32 0 }"), 0o644))

	base, err := scriptHash(ir, "-O2", "")
	require.NoError(t, err)

	optChanged, err := scriptHash(ir, "-O3", "")
	require.NoError(t, err)
	require.NotEqual(t, base, optChanged)

	runtimeChanged, err := scriptHash(ir, "-O2", "libbrix.a")
	require.NoError(t, err)
	require.NotEqual(t, base, runtimeChanged)

	require.NoError(t, os.WriteFile(ir, []byte("; edited"), 0o644))
	irChanged, err := scriptHash(ir, "-O2", "")
	require.NoError(t, err)
	require.NotEqual(t, base, irChanged)
}
