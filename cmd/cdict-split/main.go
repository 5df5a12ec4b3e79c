// Command cdict-split splits a dictionary file into several.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/freeeve/cdict/internal/blob"
	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/cli"
	"github.com/freeeve/cdict/internal/partition"
	"github.com/freeeve/cdict/internal/persist"
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
	return env.Exit(split(ctx, env, args))
}

// splitName names partition i of input: the input's base name up to its
// first dot, then -split-i and the algorithm's extension.
func splitName(input string, i int, ext string) string {
	base := input
	if loc, err := blob.ParseLocation(input); err == nil {
		base = loc.Base()
	}
	base, _, _ = strings.Cut(base, ".")
	return fmt.Sprintf("%s-split-%d%s", base, i, ext)
}

func split(ctx context.Context, env *cli.Env, args []string) error {
	fs := flag.NewFlagSet("cdict-split", flag.ContinueOnError)
	input := fs.String("input-file", "", "input dictionary to split")
	output := fs.String("output-folder", "", "folder the partitions are written to; must not exist")
	parts := fs.Int("parts", 0, "number of partitions")
	partsLength := fs.Int("parts-length", 0, "entries per partition")
	dropLast := fs.Bool("drop-last", false, "omit a final partition smaller than the others")
	resetKeys := fs.Bool("reset-keys", false, "renumber each partition's keys 0..size-1")
	shuffle := fs.Bool("shuffle", false, "shuffle keys before partitioning")
	seed := fs.Uint64("seed", 0, "shuffle seed (0: random)")
	limit := fs.Int("limit", 0, "read only the first N entries of the input (0: all)")
	workers := fs.Int("workers", env.Config.Workers, "partitions written in parallel")
	if err := env.Parse(fs, args); err != nil {
		return err
	}

	if err := cli.Require("input-file", *input); err != nil {
		return err
	}
	if err := cli.Require("output-folder", *output); err != nil {
		return err
	}
	if (*parts > 0) == (*partsLength > 0) || *parts < 0 || *partsLength < 0 {
		return cderr.InvalidArg("--parts", "give exactly one of --parts and --parts-length as a positive integer")
	}
	if *limit < 0 {
		return cderr.InvalidArg("--limit", "must not be negative, got %d", *limit)
	}
	if *workers <= 0 {
		return cderr.InvalidArg("--workers", "must be positive, got %d", *workers)
	}
	if err := cli.RefuseExisting("--output-folder", *output); err != nil {
		return err
	}
	bucket, err := blob.ResolveDir(ctx, *output, env.Config.Storage)
	if err != nil {
		return err
	}
	existing, err := bucket.List(ctx, "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return cderr.InvalidArg("--output-folder", "%s already holds %d objects", *output, len(existing))
	}

	log := env.Log
	log.Info().Str("input", *input).Msg("loading input dictionary")
	s, err := persist.LoadURI(ctx, *input, env.Config.Storage, persist.WithLimit(*limit), persist.WithLogger(log))
	if err != nil {
		return err
	}

	opts := partition.SplitOptions{
		Parts:       *parts,
		PartsLength: *partsLength,
		ResetKeys:   *resetKeys,
		DropLast:    *dropLast,
		Shuffle:     *shuffle,
	}
	if *seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(*seed, *seed))
	}
	sp, err := partition.Split(s, opts)
	if err != nil {
		return err
	}

	total := sp.Len()
	log.Info().Int("entries", s.Len()).Int("partitions", total).Ints("sizes", sp.Sizes()).Msg("writing splits")
	ext := s.Algorithm().Extension()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	i := 0
	for part := range sp.All() {
		if gctx.Err() != nil {
			break
		}
		name := splitName(*input, i, ext)
		idx := i
		g.Go(func() error {
			if err := persist.Dump(gctx, bucket, name, part, persist.WithLogger(log)); err != nil {
				return err
			}
			log.Debug().Str("name", name).Int("index", idx).Int("entries", part.Len()).Msg("wrote split")
			return nil
		})
		i++
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().Str("output", *output).Int("partitions", i).Msg("done")
	return nil
}
