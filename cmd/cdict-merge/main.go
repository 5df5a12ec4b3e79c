// Command cdict-merge merges dictionary files into one.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/cli"
	"github.com/freeeve/cdict/internal/partition"
	"github.com/freeeve/cdict/internal/persist"
	"github.com/freeeve/cdict/internal/store"
)

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
	return env.Exit(merge(ctx, env, args))
}

func merge(ctx context.Context, env *cli.Env, args []string) error {
	var (
		inputs      cli.StringList
		compression cli.AlgorithmFlag
	)
	fs := flag.NewFlagSet("cdict-merge", flag.ContinueOnError)
	fs.Var(&inputs, "input-files", "input dictionaries to merge (repeatable or comma-separated)")
	output := fs.String("output-file", "", "output dictionary")
	resetKeys := fs.Bool("reset-keys", false, "renumber keys 0..N-1 in input order")
	strict := fs.Bool("strict", false, "fail when inputs share a key")
	fs.Var(&compression, "compression", "output compression (default: the first input's)")
	workers := fs.Int("workers", env.Config.Workers, "inputs loaded in parallel")
	if err := env.Parse(fs, args); err != nil {
		return err
	}
	inputs = append(inputs, fs.Args()...)

	if len(inputs) == 0 {
		return cderr.InvalidArg("--input-files", "required")
	}
	if err := cli.Require("output-file", *output); err != nil {
		return err
	}
	if *workers <= 0 {
		return cderr.InvalidArg("--workers", "must be positive, got %d", *workers)
	}
	if err := cli.RefuseExistingDir("--output-file", *output); err != nil {
		return err
	}

	log := env.Log
	stores := make([]*store.Store, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	for i, in := range inputs {
		g.Go(func() error {
			s, err := persist.LoadURI(gctx, in, env.Config.Storage, persist.WithLogger(log))
			if err != nil {
				return err
			}
			log.Info().Str("input", in).Int("entries", s.Len()).Str("alg", s.Algorithm().String()).Msg("loaded")
			stores[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !*resetKeys && !*strict {
		if n := partition.Overlap(stores); n > 0 {
			log.Warn().Uint64("keys", n).Msg("inputs share keys; later inputs win")
		}
	}

	log.Info().Int("inputs", len(stores)).Msg("merging input dictionaries into single file")
	merged, err := partition.Merge(stores, partition.MergeOptions{
		ResetKeys: *resetKeys,
		Algorithm: compression.Alg,
		Strict:    *strict,
		Logger:    &log,
	})
	if err != nil {
		return err
	}
	if err := persist.DumpURI(ctx, *output, merged, env.Config.Storage, persist.WithLogger(log)); err != nil {
		return err
	}
	log.Info().Str("output", *output).Int("entries", merged.Len()).Stringer("stats", merged.Stats()).Msg("done")
	return nil
}
