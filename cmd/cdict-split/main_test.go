package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/persist"
	"github.com/freeeve/cdict/internal/store"
)

func writeInput(t *testing.T, path string, alg compress.Algorithm, n int) {
	t.Helper()
	s := store.New(alg)
	for i := range n {
		require.NoError(t, s.SetAny(uint32(100+i), map[string]any{"i": i}))
	}
	require.NoError(t, persist.DumpFile(s, path))
}

func runSplit(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stderr.String()
}

func TestSplitName(t *testing.T) {
	assert.Equal(t, "data-split-0.bz2", splitName("/tmp/x/data.train.bz2", 0, ".bz2"))
	assert.Equal(t, "data-split-12.gz", splitName("data", 12, ".gz"))
	assert.Equal(t, "dict-split-3.xz", splitName("s3://bucket/p/dict.xz", 3, ".xz"))
}

func TestSplitPartsLength(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "corpus.train.gz")
	writeInput(t, in, compress.Gzip, 5)
	out := filepath.Join(dir, "splits")

	code, logs := runSplit(t, "--input-file", in, "--output-folder", out, "--parts-length", "2", "--reset-keys", "--workers", "2")
	require.Equal(t, 0, code, logs)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"corpus-split-0.gz", "corpus-split-1.gz", "corpus-split-2.gz"}, names)

	sizes := []int{2, 2, 1}
	for i, name := range names {
		s, err := persist.LoadFile(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Equal(t, compress.Gzip, s.Algorithm())
		assert.Equal(t, sizes[i], s.Len())
		assert.Equal(t, uint32(0), s.KeyList()[0])
	}
}

func TestSplitPartsDropLastLimit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "d.xz")
	writeInput(t, in, compress.XZ, 10)
	out := filepath.Join(dir, "out")

	code, logs := runSplit(t, "--input-file", in, "--output-folder", out, "--parts", "2", "--limit", "7", "--drop-last")
	require.Equal(t, 0, code, logs)

	a, err := persist.LoadFile(filepath.Join(out, "d-split-0.xz"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 101, 102, 103}, a.KeyList())
	assert.NoFileExists(t, filepath.Join(out, "d-split-1.xz"))
}

func TestSplitShuffleSeeded(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "d.gz")
	writeInput(t, in, compress.Gzip, 30)

	keys := func(out string) []uint32 {
		code, logs := runSplit(t, "--input-file", in, "--output-folder", out, "--parts", "1", "--shuffle", "--seed", "99")
		require.Equal(t, 0, code, logs)
		s, err := persist.LoadFile(filepath.Join(out, "d-split-0.gz"))
		require.NoError(t, err)
		return s.KeyList()
	}
	a := keys(filepath.Join(dir, "a"))
	b := keys(filepath.Join(dir, "b"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 30)
}

func TestSplitRefusesExistingFolder(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "d.gz")
	writeInput(t, in, compress.Gzip, 3)

	code, logs := runSplit(t, "--input-file", in, "--output-folder", dir, "--parts", "2")
	assert.Equal(t, 2, code)
	assert.Contains(t, logs, "already exists")
}

func TestSplitArguments(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "d.gz")
	writeInput(t, in, compress.Gzip, 3)
	out := filepath.Join(dir, "out")

	tests := map[string][]string{
		"neither":     {"--input-file", in, "--output-folder", out},
		"both":        {"--input-file", in, "--output-folder", out, "--parts", "2", "--parts-length", "2"},
		"negative":    {"--input-file", in, "--output-folder", out, "--parts", "-2"},
		"no input":    {"--output-folder", out, "--parts", "2"},
		"no output":   {"--input-file", in, "--parts", "2"},
		"bad limit":   {"--input-file", in, "--output-folder", out, "--parts", "2", "--limit", "-1"},
		"bad workers": {"--input-file", in, "--output-folder", out, "--parts", "2", "--workers", "0"},
		"bad scheme":  {"--input-file", in, "--output-folder", "ftp://x/y", "--parts", "2"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			code, _ := runSplit(t, args...)
			assert.Equal(t, 2, code)
			assert.NoDirExists(t, out)
		})
	}

	code, _ := runSplit(t, "--input-file", filepath.Join(dir, "nope.gz"), "--output-folder", out, "--parts", "2")
	assert.Equal(t, 1, code)
}
