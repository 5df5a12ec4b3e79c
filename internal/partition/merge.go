package partition

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rs/zerolog"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/codec"
	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/store"
)

// MergeOptions configures Merge.
type MergeOptions struct {
	// ResetKeys renumbers the result 0..N-1 in concatenation order.
	ResetKeys bool
	// Algorithm is the result's algorithm. Empty uses the first store's.
	Algorithm compress.Algorithm
	// Strict rejects key collisions instead of letting later stores win.
	// Ignored with ResetKeys.
	Strict bool
	// Logger receives debug output. Nil discards.
	Logger *zerolog.Logger
}

// Merge combines stores into a new store. Inputs are not modified.
//
// Without ResetKeys a key present in several stores takes the value of the
// last one, at the position where it first appeared. Blobs whose algorithm
// differs from the target are recompressed.
func Merge(stores []*store.Store, opts MergeOptions) (*store.Store, error) {
	if len(stores) == 0 {
		return nil, cderr.InvalidArg("stores", "merge needs at least one store")
	}
	total := 0
	for i, s := range stores {
		if s == nil {
			return nil, cderr.InvalidArg("stores", "store %d is nil", i)
		}
		total += s.Len()
	}
	if opts.ResetKeys && uint64(total) > math.MaxUint32+1 {
		return nil, cderr.InvalidArg("stores", "%d entries do not fit in the key space", total)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	target := opts.Algorithm
	if target == "" {
		target = stores[0].Algorithm()
	}
	if !target.Valid() {
		return nil, &cderr.UnsupportedAlgorithmError{Name: string(target)}
	}

	out := store.WithCapacity(target, total)
	var next uint32
	collisions := 0
	for i, s := range stores {
		from := s.Algorithm()
		recompress := from != target
		if recompress {
			logger.Debug().Int("store", i).Str("from", from.String()).Str("to", target.String()).
				Int("entries", s.Len()).Msg("recompressing merge input")
		}
		for key, blob := range s.Blobs() {
			if recompress {
				var err error
				if blob, err = codec.Recompress(blob, from, target); err != nil {
					return nil, err
				}
			}
			if opts.ResetKeys {
				key = next
				next++
			} else if out.Has(key) {
				if opts.Strict {
					return nil, &cderr.DuplicateKeyError{Key: key}
				}
				collisions++
			}
			out.SetRaw(key, blob)
		}
	}

	logger.Debug().Int("stores", len(stores)).Int("entries", out.Len()).
		Int("collisions", collisions).Str("alg", target.String()).Msg("merged stores")
	return out, nil
}

// Overlap counts the keys present in more than one store.
func Overlap(stores []*store.Store) uint64 {
	seen := roaring.New()
	dup := roaring.New()
	for _, s := range stores {
		if s == nil {
			continue
		}
		keys := s.KeySet()
		dup.Or(roaring.And(seen, keys))
		seen.Or(keys)
	}
	return dup.GetCardinality()
}
