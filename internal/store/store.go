package store

import (
	"bytes"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/codec"
	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/value"
)

// compactMin is the number of dead slots tolerated before compaction is
// considered at all.
const compactMin = 32

type entry struct {
	key  uint32
	blob []byte
	live bool
}

// Store maps uint32 keys to compressed values. The zero value is an empty
// store using compress.Default.
type Store struct {
	alg     compress.Algorithm
	entries []entry // insertion order, including dead slots
	index   map[uint32]int
	dead    int
}

// Item is one decoded key/value pair.
type Item struct {
	Key   uint32
	Value value.Value
}

// New creates an empty store using alg. An empty alg selects compress.Default.
func New(alg compress.Algorithm) *Store {
	if alg == "" {
		alg = compress.Default
	}
	return &Store{alg: alg, index: make(map[uint32]int)}
}

// WithCapacity creates an empty store sized for n entries.
func WithCapacity(alg compress.Algorithm, n int) *Store {
	s := New(alg)
	s.entries = make([]entry, 0, n)
	s.index = make(map[uint32]int, n)
	return s
}

// Algorithm returns the compression algorithm shared by every entry.
func (s *Store) Algorithm() compress.Algorithm {
	if s.alg == "" {
		return compress.Default
	}
	return s.alg
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.index) }

// Has reports whether key is present.
func (s *Store) Has(key uint32) bool {
	_, ok := s.index[key]
	return ok
}

// Set encodes v and stores it under key, overwriting any previous value.
func (s *Store) Set(key uint32, v value.Value) error {
	blob, err := codec.Encode(v, s.Algorithm())
	if err != nil {
		return err
	}
	s.put(key, blob)
	return nil
}

// SetAny converts x with value.FromAny and stores it under key.
func (s *Store) SetAny(key uint32, x any) error {
	v, err := value.FromAny(x)
	if err != nil {
		return err
	}
	return s.Set(key, v)
}

// SetRaw stores a blob already encoded with the store's algorithm. The store
// keeps blob; callers must not modify it afterwards.
func (s *Store) SetRaw(key uint32, blob []byte) {
	s.put(key, blob)
}

func (s *Store) put(key uint32, blob []byte) {
	if s.index == nil {
		s.index = make(map[uint32]int)
	}
	if i, ok := s.index[key]; ok {
		s.entries[i].blob = blob
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, entry{key: key, blob: blob, live: true})
}

// Get decodes the value stored under key.
func (s *Store) Get(key uint32) (value.Value, error) {
	i, ok := s.index[key]
	if !ok {
		return value.Value{}, &cderr.KeyNotFoundError{Key: key}
	}
	return codec.Decode(s.entries[i].blob, s.Algorithm())
}

// Raw returns a copy of the compressed blob stored under key, without
// decoding it.
func (s *Store) Raw(key uint32) ([]byte, error) {
	i, ok := s.index[key]
	if !ok {
		return nil, &cderr.KeyNotFoundError{Key: key}
	}
	return bytes.Clone(s.entries[i].blob), nil
}

// Blob returns the stored blob for key without copying. The slice must not be
// modified.
func (s *Store) Blob(key uint32) ([]byte, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.entries[i].blob, true
}

// Delete removes key.
func (s *Store) Delete(key uint32) error {
	i, ok := s.index[key]
	if !ok {
		return &cderr.KeyNotFoundError{Key: key}
	}
	delete(s.index, key)
	s.entries[i] = entry{}
	s.dead++
	if s.dead >= compactMin && s.dead > len(s.entries)/2 {
		s.compact()
	}
	return nil
}

func (s *Store) compact() {
	live := make([]entry, 0, len(s.index))
	for _, e := range s.entries {
		if e.live {
			s.index[e.key] = len(live)
			live = append(live, e)
		}
	}
	s.entries = live
	s.dead = 0
}

// Update applies Set for each pair in order; later pairs overwrite earlier
// ones. It stops at the first failure, leaving earlier pairs applied.
func (s *Store) Update(pairs iter.Seq2[uint32, value.Value]) error {
	for k, v := range pairs {
		if err := s.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// snapshot copies the live entries in insertion order. Blob slices are shared;
// they are never modified in place.
func (s *Store) snapshot() []entry {
	out := make([]entry, 0, len(s.index))
	for _, e := range s.entries {
		if e.live {
			out = append(out, e)
		}
	}
	return out
}

// Keys returns the keys in insertion order as of the call.
func (s *Store) Keys() iter.Seq[uint32] {
	snap := s.snapshot()
	return func(yield func(uint32) bool) {
		for _, e := range snap {
			if !yield(e.key) {
				return
			}
		}
	}
}

// KeyList returns the keys in insertion order.
func (s *Store) KeyList() []uint32 {
	out := make([]uint32, 0, len(s.index))
	for _, e := range s.entries {
		if e.live {
			out = append(out, e.key)
		}
	}
	return out
}

// Items returns the decoded entries in insertion order as of the call.
// Values are decoded lazily; a decode failure is yielded once and ends the
// sequence.
func (s *Store) Items() iter.Seq2[Item, error] {
	snap := s.snapshot()
	alg := s.Algorithm()
	return func(yield func(Item, error) bool) {
		for _, e := range snap {
			v, err := codec.Decode(e.blob, alg)
			if err != nil {
				yield(Item{Key: e.key}, err)
				return
			}
			if !yield(Item{Key: e.key, Value: v}, nil) {
				return
			}
		}
	}
}

// Blobs returns the raw blobs in insertion order as of the call. The yielded
// slices must not be modified.
func (s *Store) Blobs() iter.Seq2[uint32, []byte] {
	snap := s.snapshot()
	return func(yield func(uint32, []byte) bool) {
		for _, e := range snap {
			if !yield(e.key, e.blob) {
				return
			}
		}
	}
}

// SetAlgorithm re-encodes every entry with alg. On failure the store is left
// unchanged.
func (s *Store) SetAlgorithm(alg compress.Algorithm) error {
	if !alg.Valid() {
		return &cderr.UnsupportedAlgorithmError{Name: string(alg)}
	}
	if alg == s.Algorithm() {
		return nil
	}
	moved := make([][]byte, len(s.entries))
	for i, e := range s.entries {
		if !e.live {
			continue
		}
		blob, err := codec.Recompress(e.blob, s.Algorithm(), alg)
		if err != nil {
			return err
		}
		moved[i] = blob
	}
	for i := range s.entries {
		if s.entries[i].live {
			s.entries[i].blob = moved[i]
		}
	}
	s.alg = alg
	return nil
}

// Compatible reports whether blobs can move between s and other unchanged.
func (s *Store) Compatible(other *Store) bool {
	return other != nil && s.Algorithm() == other.Algorithm()
}

// KeySet returns the set of keys as a bitmap.
func (s *Store) KeySet() *roaring.Bitmap {
	bm := roaring.New()
	for k := range s.index {
		bm.Add(k)
	}
	return bm
}

// Equal reports whether s and other use the same algorithm and hold the same
// keys with equal decoded values. Insertion order is ignored.
func (s *Store) Equal(other *Store) (bool, error) {
	if other == nil || s.Algorithm() != other.Algorithm() || s.Len() != other.Len() {
		return false, nil
	}
	if !s.KeySet().Equals(other.KeySet()) {
		return false, nil
	}
	for k, i := range s.index {
		a := s.entries[i].blob
		b := other.entries[other.index[k]].blob
		if bytes.Equal(a, b) {
			continue
		}
		va, err := codec.Decode(a, s.Algorithm())
		if err != nil {
			return false, err
		}
		vb, err := codec.Decode(b, other.Algorithm())
		if err != nil {
			return false, err
		}
		if !value.Equal(va, vb) {
			return false, nil
		}
	}
	return true, nil
}
