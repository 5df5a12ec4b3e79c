// Command cdict-serve loads a dictionary file and serves it read-only over
// HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/cli"
	"github.com/freeeve/cdict/internal/httpapi"
	"github.com/freeeve/cdict/internal/persist"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run serves until ctx is done. ready, when set, receives the listen address
// once the server accepts connections.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, ready chan<- string) int {
	env, err := cli.Setup(stdout, stderr)
	if err != nil {
		return cderr.ExitCode(err)
	}
	return env.Exit(serve(ctx, env, args, ready))
}

func serve(ctx context.Context, env *cli.Env, args []string, ready chan<- string) error {
	fs := flag.NewFlagSet("cdict-serve", flag.ContinueOnError)
	input := fs.String("input", "", "dictionary to serve")
	addr := fs.String("addr", ":8080", "listen address")
	limit := fs.Int("limit", 0, "load only the first N entries (0: all)")
	if err := env.Parse(fs, args); err != nil {
		return err
	}
	if err := cli.Require("input", *input); err != nil {
		return err
	}
	if *limit < 0 {
		return cderr.InvalidArg("--limit", "must not be negative, got %d", *limit)
	}

	log := env.Log
	s, err := persist.LoadURI(ctx, *input, env.Config.Storage, persist.WithLimit(*limit), persist.WithLogger(log))
	if err != nil {
		return err
	}
	log.Info().Str("input", *input).Stringer("stats", s.Stats()).Str("alg", s.Algorithm().String()).Msg("dictionary loaded")

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      httpapi.NewRouter(log, s, *input),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("api listening")
		errc <- srv.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown error")
	}
	log.Info().Msg("shutdown complete")
	return nil
}
