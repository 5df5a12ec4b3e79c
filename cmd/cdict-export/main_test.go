package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/persist"
	"github.com/freeeve/cdict/internal/store"
)

func writeDict(t *testing.T, path string) {
	t.Helper()
	s := store.New(compress.BZ2)
	require.NoError(t, s.SetAny(5, map[string]any{"b": true, "a": 1.5}))
	require.NoError(t, s.SetAny(2, []any{"x", nil}))
	require.NoError(t, s.SetAny(9, "last"))
	require.NoError(t, persist.DumpFile(s, path))
}

func runExport(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExportStdout(t *testing.T) {
	in := filepath.Join(t.TempDir(), "d.bz2")
	writeDict(t, in)

	code, out, logs := runExport(t, "--input", in)
	require.Equal(t, 0, code, logs)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"key":5,"value":{"a":1.5,"b":true}}`, lines[0])
	assert.Equal(t, `{"key":2,"value":["x",null]}`, lines[1])
	assert.Equal(t, `{"key":9,"value":"last"}`, lines[2])
}

func TestExportFileWithLimit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "d.bz2")
	writeDict(t, in)
	dst := filepath.Join(dir, "out.jsonl")

	code, out, logs := runExport(t, "--input", in, "--output", dst, "--limit", "2")
	require.Equal(t, 0, code, logs)
	assert.Empty(t, out)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	assert.True(t, strings.HasPrefix(string(data), `{"key":5,`))
}

func TestExportArguments(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := runExport(t)
	assert.Equal(t, 2, code)

	in := filepath.Join(dir, "d.bz2")
	writeDict(t, in)
	code, _, _ = runExport(t, "--input", in, "--limit", "-1")
	assert.Equal(t, 2, code)

	code, _, _ = runExport(t, "--input", in, "--output", dir)
	assert.Equal(t, 2, code)

	code, _, logs := runExport(t, "--input", filepath.Join(dir, "nope.bz2"))
	assert.Equal(t, 1, code)
	assert.Contains(t, logs, "nope.bz2")
}
