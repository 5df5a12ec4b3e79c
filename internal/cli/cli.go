// Package cli holds the plumbing shared by the cdict commands: environment
// config, the stderr logger, repeatable flags and exit codes.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdict/internal/blob"
	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/config"
	"github.com/freeeve/cdict/internal/logx"
)

// Env is what every command starts from.
type Env struct {
	Config *config.Config
	Log    zerolog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// Setup reads the environment config and builds a logger writing to stderr.
// A config error is logged and returned.
func Setup(stdout, stderr io.Writer) (*Env, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		log := logx.New(stderr, nil)
		log.Error().Err(err).Msg("read config")
		return nil, err
	}
	return &Env{Config: cfg, Log: logx.New(stderr, cfg), Stdout: stdout, Stderr: stderr}, nil
}

// Parse parses args into fs. Usage goes to the env's stderr. Parse errors are
// returned as invalid-argument errors; -h returns flag.ErrHelp.
func (e *Env) Parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(e.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return cderr.InvalidArg("", "%v", err)
	}
	return nil
}

// Exit logs err and returns the process exit code for it.
func (e *Env) Exit(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	e.Log.Error().Err(err).Msg("failed")
	return cderr.ExitCode(err)
}

// StringList is a flag that can be repeated or given comma-separated values.
type StringList []string

func (l *StringList) String() string { return strings.Join(*l, ",") }

func (l *StringList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

// AlgorithmFlag is a flag naming a compression algorithm. The zero value means
// unset.
type AlgorithmFlag struct {
	Alg compress.Algorithm
}

func (f *AlgorithmFlag) String() string { return string(f.Alg) }

func (f *AlgorithmFlag) Set(v string) error {
	alg, err := compress.Parse(v)
	if err != nil {
		return fmt.Errorf("%w (want one of %v)", err, compress.All())
	}
	f.Alg = alg
	return nil
}

// Or returns the flag's algorithm or def when unset.
func (f *AlgorithmFlag) Or(def compress.Algorithm) compress.Algorithm {
	if f.Alg == "" {
		return def
	}
	return f.Alg
}

// RefuseExistingDir fails when uri is a local path naming an existing
// directory.
func RefuseExistingDir(arg, uri string) error {
	loc, err := blob.ParseLocation(uri)
	if err != nil {
		return err
	}
	if !loc.IsLocal() {
		return nil
	}
	if fi, err := os.Stat(loc.Path); err == nil && fi.IsDir() {
		return cderr.InvalidArg(arg, "%s is an existing directory", uri)
	}
	return nil
}

// RefuseExisting fails when uri is a local path that already exists.
func RefuseExisting(arg, uri string) error {
	loc, err := blob.ParseLocation(uri)
	if err != nil {
		return err
	}
	if !loc.IsLocal() {
		return nil
	}
	if _, err := os.Stat(loc.Path); err == nil {
		return cderr.InvalidArg(arg, "%s already exists", uri)
	}
	return nil
}

// Require fails when a mandatory flag is empty.
func Require(name, v string) error {
	if v == "" {
		return cderr.InvalidArg("--"+name, "required")
	}
	return nil
}
