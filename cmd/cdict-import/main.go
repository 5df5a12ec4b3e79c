// Command cdict-import builds a dictionary file from JSON lines.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
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

const maxLineBytes = 64 << 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	env, err := cli.Setup(stdout, stderr)
	if err != nil {
		return cderr.ExitCode(err)
	}
	return env.Exit(importLines(ctx, env, stdin, args))
}

func importLines(ctx context.Context, env *cli.Env, stdin io.Reader, args []string) error {
	var compression cli.AlgorithmFlag
	fs := flag.NewFlagSet("cdict-import", flag.ContinueOnError)
	input := fs.String("input", "-", "JSON lines to import, - for stdin")
	output := fs.String("output", "", "output dictionary")
	keyField := fs.String("key-field", "", "object field holding each entry's key (default: record number)")
	fs.Var(&compression, "compression", "output compression (default: $CDICT_COMPRESSION or bz2)")
	if err := env.Parse(fs, args); err != nil {
		return err
	}
	if err := cli.Require("output", *output); err != nil {
		return err
	}
	if err := cli.RefuseExistingDir("--output", *output); err != nil {
		return err
	}

	r := stdin
	if *input != "-" {
		b, name, err := blob.Resolve(ctx, *input, env.Config.Storage)
		if err != nil {
			return err
		}
		data, err := b.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", *input, err)
		}
		r = bytes.NewReader(data)
	}

	s := store.New(compression.Or(env.Config.Compression))
	if err := readLines(r, s, *keyField); err != nil {
		return fmt.Errorf("import %s: %w", *input, err)
	}
	if err := persist.DumpURI(ctx, *output, s, env.Config.Storage, persist.WithLogger(env.Log)); err != nil {
		return err
	}
	env.Log.Info().Str("output", *output).Int("entries", s.Len()).Str("alg", s.Algorithm().String()).Msg("imported")
	return nil
}

// readLines stores one entry per non-blank line of r.
func readLines(r io.Reader, s *store.Store, keyField string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line, record := 0, 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		v, err := value.ParseJSON(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if uint64(record) > math.MaxUint32 {
			return cderr.InvalidArg("--input", "more than %d records", uint64(math.MaxUint32)+1)
		}
		key := uint32(record)
		if keyField != "" {
			if key, err = recordKey(v, keyField); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			if s.Has(key) {
				return fmt.Errorf("line %d: %w", line, &cderr.DuplicateKeyError{Key: key})
			}
		}
		if err := s.Set(key, v); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		record++
	}
	return sc.Err()
}

func recordKey(v value.Value, field string) (uint32, error) {
	f, ok := v.Lookup(field)
	if !ok {
		return 0, cderr.InvalidArg("--key-field", "record has no field %q", field)
	}
	n, ok := f.AsInt()
	if !ok || n < 0 || n > math.MaxUint32 {
		return 0, cderr.InvalidArg("--key-field", "field %q is %s, want an integer in [0, %d]", field, f, uint64(math.MaxUint32))
	}
	return uint32(n), nil
}
