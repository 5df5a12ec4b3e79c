package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/httpapi"
	"github.com/freeeve/cdict/internal/persist"
	"github.com/freeeve/cdict/internal/store"
)

func TestServe(t *testing.T) {
	in := filepath.Join(t.TempDir(), "d.gz")
	s := store.New(compress.Gzip)
	require.NoError(t, s.SetAny(3, map[string]any{"a": 1}))
	require.NoError(t, persist.DumpFile(s, in))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan int, 1)
	var stderr bytes.Buffer
	go func() {
		done <- run(ctx, []string{"--input", in, "--addr", "127.0.0.1:0"}, io.Discard, &stderr, ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case code := <-done:
		t.Fatalf("server exited early with %d", code)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/v1/entries/3")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"key":3,"value":{"a":1}}`, string(body))

	resp, err = http.Get("http://" + addr + "/v1/stats")
	require.NoError(t, err)
	var stats httpapi.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, in, stats.Source)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeArguments(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 2, run(ctx, nil, io.Discard, io.Discard, nil))
	assert.Equal(t, 2, run(ctx, []string{"--input", "x.gz", "--limit", "-3"}, io.Discard, io.Discard, nil))
	assert.Equal(t, 1, run(ctx, []string{"--input", filepath.Join(t.TempDir(), "missing.gz")}, io.Discard, io.Discard, nil))
}
