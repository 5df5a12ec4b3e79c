package persist

import (
	"github.com/rs/zerolog"

	"github.com/freeeve/cdict/internal/compress"
)

type options struct {
	alg    compress.Algorithm
	limit  int
	logger zerolog.Logger
	name   string // file or object name, used to infer the algorithm
}

// Option configures Encode, Decode, Dump and Load.
type Option func(*options)

// WithAlgorithm fixes the algorithm.
//
// On load it skips inference; the file must still have been written with
// alg. On dump, blobs are recompressed to alg when the store uses another one.
func WithAlgorithm(alg compress.Algorithm) Option {
	return func(o *options) { o.alg = alg }
}

// WithLimit keeps only the first n entries in insertion order. Zero or a
// negative n means no limit.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithLogger sets the logger for debug output. The default discards.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func withName(name string) Option {
	return func(o *options) { o.name = name }
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
