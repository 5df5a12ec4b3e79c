// Command cdict-export writes a dictionary file as JSON lines.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/cdict/internal/blob"
	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/cli"
	"github.com/freeeve/cdict/internal/persist"
	"github.com/freeeve/cdict/internal/store"
	"github.com/freeeve/cdict/internal/value"
)

type line struct {
	Key   uint32      `json:"key"`
	Value value.Value `json:"value"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	env, err := cli.Setup(stdout, stderr)
	if err != nil {
		return cderr.ExitCode(err)
	}
	return env.Exit(export(ctx, env, args))
}

func export(ctx context.Context, env *cli.Env, args []string) error {
	fs := flag.NewFlagSet("cdict-export", flag.ContinueOnError)
	input := fs.String("input", "", "dictionary to export")
	output := fs.String("output", "-", "JSON lines output, - for stdout")
	limit := fs.Int("limit", 0, "export only the first N entries (0: all)")
	if err := env.Parse(fs, args); err != nil {
		return err
	}
	if err := cli.Require("input", *input); err != nil {
		return err
	}
	if *limit < 0 {
		return cderr.InvalidArg("--limit", "must not be negative, got %d", *limit)
	}
	if *output != "-" {
		if err := cli.RefuseExistingDir("--output", *output); err != nil {
			return err
		}
	}

	s, err := persist.LoadURI(ctx, *input, env.Config.Storage, persist.WithLimit(*limit), persist.WithLogger(env.Log))
	if err != nil {
		return err
	}

	if *output == "-" {
		w := bufio.NewWriter(env.Stdout)
		if err := writeLines(w, s); err != nil {
			return err
		}
		return w.Flush()
	}

	var buf bytes.Buffer
	if err := writeLines(&buf, s); err != nil {
		return err
	}
	b, name, err := blob.Resolve(ctx, *output, env.Config.Storage)
	if err != nil {
		return err
	}
	if err := b.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	env.Log.Info().Str("output", *output).Int("entries", s.Len()).Msg("exported")
	return nil
}

func writeLines(w io.Writer, s *store.Store) error {
	enc := json.NewEncoder(w)
	for it, err := range s.Items() {
		if err != nil {
			return fmt.Errorf("key %d: %w", it.Key, err)
		}
		if err := enc.Encode(line{Key: it.Key, Value: it.Value}); err != nil {
			return fmt.Errorf("key %d: %w", it.Key, err)
		}
	}
	return nil
}
