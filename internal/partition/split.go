// Package partition splits one store into many and merges many stores into
// one. Blobs move between stores without being decoded; they are only
// recompressed when a merge changes algorithm.
package partition

import (
	"iter"
	"math/rand/v2"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/store"
)

// SplitOptions configures Split. Exactly one of Parts and PartsLength must be
// positive.
type SplitOptions struct {
	// Parts is the number of partitions. Sizes differ by at most one, larger
	// partitions first.
	Parts int
	// PartsLength is the size of every partition except possibly the last.
	PartsLength int
	// ResetKeys renumbers each partition's keys 0..size-1.
	ResetKeys bool
	// DropLast omits a short final partition. With Parts it is dropped when
	// smaller than the first; with PartsLength when smaller than PartsLength,
	// so every partition yielded has exactly PartsLength entries.
	DropLast bool
	// Shuffle permutes the key order once before partitioning.
	Shuffle bool
	// Rand is the shuffle source. Nil uses the global source.
	Rand *rand.Rand
}

// Splitter yields the partitions of a store one at a time. It is not
// restartable. The source store must not be mutated while a Splitter is in
// use.
type Splitter struct {
	src       *store.Store
	keys      []uint32
	bounds    []int // partition i covers keys[bounds[i]:bounds[i+1]]
	next      int
	resetKeys bool
}

// Split validates opts and returns a Splitter over s.
func Split(s *store.Store, opts SplitOptions) (*Splitter, error) {
	if s == nil {
		return nil, cderr.InvalidArg("store", "nil")
	}
	if opts.Parts < 0 {
		return nil, cderr.InvalidArg("parts", "must be positive, got %d", opts.Parts)
	}
	if opts.PartsLength < 0 {
		return nil, cderr.InvalidArg("parts length", "must be positive, got %d", opts.PartsLength)
	}
	if (opts.Parts > 0) == (opts.PartsLength > 0) {
		return nil, cderr.InvalidArg("parts", "exactly one of parts and parts length must be set")
	}

	keys := s.KeyList()
	if opts.Shuffle {
		swap := func(i, j int) { keys[i], keys[j] = keys[j], keys[i] }
		if opts.Rand != nil {
			opts.Rand.Shuffle(len(keys), swap)
		} else {
			rand.Shuffle(len(keys), swap)
		}
	}

	var bounds []int
	if opts.Parts > 0 {
		bounds = balancedBounds(len(keys), opts.Parts)
	} else {
		bounds = chunkBounds(len(keys), opts.PartsLength)
	}
	if opts.DropLast {
		if opts.Parts > 0 {
			bounds = dropLast(bounds)
		} else {
			bounds = dropPartial(bounds, opts.PartsLength)
		}
	}

	return &Splitter{
		src:       s,
		keys:      keys,
		bounds:    bounds,
		resetKeys: opts.ResetKeys,
	}, nil
}

// balancedBounds divides n items into parts ranges; the first n%parts ranges
// hold one extra item.
func balancedBounds(n, parts int) []int {
	k, m := n/parts, n%parts
	bounds := make([]int, parts+1)
	for i := 1; i <= parts; i++ {
		bounds[i] = i*k + min(i, m)
	}
	return bounds
}

// chunkBounds divides n items into ranges of size length, the last one
// holding the remainder.
func chunkBounds(n, length int) []int {
	bounds := []int{0}
	for end := length; ; end += length {
		if end >= n {
			if n > bounds[len(bounds)-1] {
				bounds = append(bounds, n)
			}
			return bounds
		}
		bounds = append(bounds, end)
	}
}

// dropLast removes the final range when more than one exists and it is
// smaller than the first.
func dropLast(bounds []int) []int {
	parts := len(bounds) - 1
	if parts < 2 {
		return bounds
	}
	first := bounds[1] - bounds[0]
	last := bounds[parts] - bounds[parts-1]
	if last < first {
		return bounds[:parts]
	}
	return bounds
}

// dropPartial removes the final range when it holds fewer than length items.
func dropPartial(bounds []int, length int) []int {
	parts := len(bounds) - 1
	if parts > 0 && bounds[parts]-bounds[parts-1] < length {
		return bounds[:parts]
	}
	return bounds
}

// Len returns the total number of partitions.
func (sp *Splitter) Len() int { return len(sp.bounds) - 1 }

// Remaining returns the number of partitions not yet yielded.
func (sp *Splitter) Remaining() int { return sp.Len() - sp.next }

// Sizes returns the size of every partition, including those already yielded.
func (sp *Splitter) Sizes() []int {
	sizes := make([]int, sp.Len())
	for i := range sizes {
		sizes[i] = sp.bounds[i+1] - sp.bounds[i]
	}
	return sizes
}

// Next builds the next partition. It returns false once every partition has
// been yielded.
func (sp *Splitter) Next() (*store.Store, bool) {
	if sp.next >= sp.Len() {
		return nil, false
	}
	keys := sp.keys[sp.bounds[sp.next]:sp.bounds[sp.next+1]]
	sp.next++

	part := store.WithCapacity(sp.src.Algorithm(), len(keys))
	for i, k := range keys {
		blob, ok := sp.src.Blob(k)
		if !ok {
			// The source was mutated during the split.
			continue
		}
		if sp.resetKeys {
			part.SetRaw(uint32(i), blob)
		} else {
			part.SetRaw(k, blob)
		}
	}
	return part, true
}

// All yields the remaining partitions. Consuming it advances the Splitter.
func (sp *Splitter) All() iter.Seq[*store.Store] {
	return func(yield func(*store.Store) bool) {
		for {
			part, ok := sp.Next()
			if !ok || !yield(part) {
				return
			}
		}
	}
}
