package partition_test

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/partition"
	"github.com/freeeve/cdict/internal/store"
	"github.com/freeeve/cdict/internal/value"
)

// sequential builds a store holding {"a": key} under keys first..first+n-1.
func sequential(t *testing.T, alg compress.Algorithm, first, n int) *store.Store {
	t.Helper()
	s := store.New(alg)
	for i := first; i < first+n; i++ {
		require.NoError(t, s.SetAny(uint32(i), map[string]any{"a": i}))
	}
	return s
}

func intField(t *testing.T, s *store.Store, key uint32) int64 {
	t.Helper()
	v, err := s.Get(key)
	require.NoError(t, err)
	a, ok := v.Lookup("a")
	require.True(t, ok)
	n, ok := a.AsInt()
	require.True(t, ok)
	return n
}

func collect(t *testing.T, sp *partition.Splitter) []*store.Store {
	t.Helper()
	return slices.Collect(sp.All())
}

func TestSplitPartsLengthResetKeys(t *testing.T) {
	s := store.New(compress.Gzip)
	for i := range 3 {
		require.NoError(t, s.SetAny(uint32(i), map[string]any{"a": i + 1}))
	}

	sp, err := partition.Split(s, partition.SplitOptions{PartsLength: 2, ResetKeys: true})
	require.NoError(t, err)
	assert.Equal(t, 2, sp.Len())
	assert.Equal(t, []int{2, 1}, sp.Sizes())

	parts := collect(t, sp)
	require.Len(t, parts, 2)
	assert.Equal(t, []uint32{0, 1}, parts[0].KeyList())
	assert.Equal(t, int64(1), intField(t, parts[0], 0))
	assert.Equal(t, int64(2), intField(t, parts[0], 1))
	assert.Equal(t, []uint32{0}, parts[1].KeyList())
	assert.Equal(t, int64(3), intField(t, parts[1], 0))

	_, ok := sp.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, sp.Remaining())
}

func TestSplitTotality(t *testing.T) {
	s := sequential(t, compress.XZ, 100, 23)
	cases := []partition.SplitOptions{
		{Parts: 1},
		{Parts: 4},
		{Parts: 23},
		{Parts: 30},
		{PartsLength: 1},
		{PartsLength: 5},
		{PartsLength: 23},
		{PartsLength: 50},
		{Parts: 4, Shuffle: true, Rand: rand.New(rand.NewPCG(1, 2))},
	}
	for _, opts := range cases {
		sp, err := partition.Split(s, opts)
		require.NoError(t, err)

		var keys []uint32
		for part := range sp.All() {
			assert.Equal(t, s.Algorithm(), part.Algorithm())
			for k, b := range part.Blobs() {
				want, ok := s.Blob(k)
				require.True(t, ok)
				assert.True(t, bytes.Equal(want, b))
				keys = append(keys, k)
			}
		}
		if opts.Shuffle {
			slices.Sort(keys)
		}
		assert.Equal(t, s.KeyList(), keys, "%+v", opts)
	}
}

func TestSplitPartsSizes(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 10)
	tests := []struct {
		parts int
		want  []int
	}{
		{1, []int{10}},
		{3, []int{4, 3, 3}},
		{4, []int{3, 3, 2, 2}},
		{10, slices.Repeat([]int{1}, 10)},
		{12, append(slices.Repeat([]int{1}, 10), 0, 0)},
	}
	for _, tt := range tests {
		sp, err := partition.Split(s, partition.SplitOptions{Parts: tt.parts})
		require.NoError(t, err)
		assert.Equal(t, tt.want, sp.Sizes(), "parts=%d", tt.parts)
		assert.Len(t, collect(t, sp), tt.parts)
	}
}

func TestSplitPartsLengthSizes(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 10)
	tests := []struct {
		length   int
		dropLast bool
		want     []int
	}{
		{3, false, []int{3, 3, 3, 1}},
		{3, true, []int{3, 3, 3}},
		{5, false, []int{5, 5}},
		{5, true, []int{5, 5}},
		{20, false, []int{10}},
		{20, true, []int{}},
		{10, true, []int{10}},
	}
	for _, tt := range tests {
		sp, err := partition.Split(s, partition.SplitOptions{PartsLength: tt.length, DropLast: tt.dropLast})
		require.NoError(t, err)
		assert.Equal(t, tt.want, sp.Sizes(), "length=%d drop=%v", tt.length, tt.dropLast)
	}
}

func TestSplitDropLastParts(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 10)
	sp, err := partition.Split(s, partition.SplitOptions{Parts: 4, DropLast: true})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 2}, sp.Sizes())

	sp, err = partition.Split(s, partition.SplitOptions{Parts: 5, DropLast: true})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2, 2, 2}, sp.Sizes())
}

func TestSplitDropLastKeepsFullParts(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 17)
	for length := 1; length <= 20; length++ {
		sp, err := partition.Split(s, partition.SplitOptions{PartsLength: length, DropLast: true})
		require.NoError(t, err)
		assert.Equal(t, 17/length, sp.Len(), "length=%d", length)
		for part := range sp.All() {
			assert.Equal(t, length, part.Len(), "length=%d", length)
		}
	}

	small := sequential(t, compress.Gzip, 0, 3)
	sp, err := partition.Split(small, partition.SplitOptions{PartsLength: 5, DropLast: true})
	require.NoError(t, err)
	assert.Equal(t, []int{}, sp.Sizes())
	assert.Empty(t, collect(t, sp))
}

func TestSplitEmptyStore(t *testing.T) {
	s := store.New(compress.Gzip)
	sp, err := partition.Split(s, partition.SplitOptions{PartsLength: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, sp.Len())
	assert.Empty(t, collect(t, sp))

	sp, err = partition.Split(s, partition.SplitOptions{Parts: 2})
	require.NoError(t, err)
	parts := collect(t, sp)
	require.Len(t, parts, 2)
	assert.Equal(t, 0, parts[0].Len())
}

func TestSplitResetKeysContiguous(t *testing.T) {
	s := sequential(t, compress.BZ2, 1000, 11)
	sp, err := partition.Split(s, partition.SplitOptions{Parts: 3, ResetKeys: true, Shuffle: true, Rand: rand.New(rand.NewPCG(7, 7))})
	require.NoError(t, err)

	seen := map[int64]bool{}
	for part := range sp.All() {
		want := make([]uint32, part.Len())
		for i := range want {
			want[i] = uint32(i)
			seen[intField(t, part, uint32(i))] = true
		}
		assert.Equal(t, want, part.KeyList())
	}
	assert.Len(t, seen, 11)
}

func TestSplitShuffleSeeded(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 50)
	order := func(seed uint64) []uint32 {
		sp, err := partition.Split(s, partition.SplitOptions{Parts: 1, Shuffle: true, Rand: rand.New(rand.NewPCG(seed, 0))})
		require.NoError(t, err)
		part, ok := sp.Next()
		require.True(t, ok)
		return part.KeyList()
	}
	a, b := order(42), order(42)
	assert.Equal(t, a, b)
	assert.NotEqual(t, s.KeyList(), a)
	assert.ElementsMatch(t, s.KeyList(), a)
}

func TestSplitLeavesSourceAlone(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 6)
	before := s.KeyList()
	sp, err := partition.Split(s, partition.SplitOptions{Parts: 2, ResetKeys: true, Shuffle: true})
	require.NoError(t, err)
	for part := range sp.All() {
		require.NoError(t, part.SetAny(0, "changed"))
	}
	assert.Equal(t, before, s.KeyList())
	assert.Equal(t, int64(0), intField(t, s, 0))
}

func TestSplitNextIsLazy(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 6)
	sp, err := partition.Split(s, partition.SplitOptions{PartsLength: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, sp.Remaining())

	for part := range sp.All() {
		assert.Equal(t, []uint32{0, 1}, part.KeyList())
		break
	}
	assert.Equal(t, 2, sp.Remaining())

	part, ok := sp.Next()
	require.True(t, ok)
	assert.Equal(t, []uint32{2, 3}, part.KeyList())
	assert.Len(t, collect(t, sp), 1)
	assert.Empty(t, collect(t, sp))
}

func TestSplitInvalidArguments(t *testing.T) {
	s := sequential(t, compress.Gzip, 0, 3)
	for _, opts := range []partition.SplitOptions{
		{},
		{Parts: 2, PartsLength: 2},
		{Parts: -1},
		{PartsLength: -3},
		{Parts: -1, PartsLength: 2},
	} {
		_, err := partition.Split(s, opts)
		require.ErrorIs(t, err, cderr.ErrInvalidArgument, "%+v", opts)
	}
	_, err := partition.Split(nil, partition.SplitOptions{Parts: 1})
	require.ErrorIs(t, err, cderr.ErrInvalidArgument)
}

func TestMergeDisjointUnion(t *testing.T) {
	a := sequential(t, compress.Gzip, 0, 5)
	b := sequential(t, compress.Gzip, 10, 5)

	m, err := partition.Merge([]*store.Store{a, b}, partition.MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10, m.Len())
	assert.Equal(t, append(a.KeyList(), b.KeyList()...), m.KeyList())
	for _, k := range m.KeyList() {
		assert.Equal(t, int64(k), intField(t, m, k))
	}
	assert.Equal(t, uint64(0), partition.Overlap([]*store.Store{a, b}))
}

func TestMergeLastWriteWins(t *testing.T) {
	a := store.New(compress.Gzip)
	require.NoError(t, a.SetAny(1, "a1"))
	require.NoError(t, a.SetAny(2, "a2"))
	b := store.New(compress.Gzip)
	require.NoError(t, b.SetAny(3, "b3"))
	require.NoError(t, b.SetAny(1, "b1"))

	m, err := partition.Merge([]*store.Store{a, b}, partition.MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, m.KeyList())
	v, err := m.Get(1)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.String("b1"), v))

	got, err := a.Get(1)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.String("a1"), got), "inputs must not change")

	assert.Equal(t, uint64(1), partition.Overlap([]*store.Store{a, b}))
}

func TestMergeStrict(t *testing.T) {
	a := sequential(t, compress.Gzip, 0, 3)
	b := sequential(t, compress.Gzip, 2, 3)

	_, err := partition.Merge([]*store.Store{a, b}, partition.MergeOptions{Strict: true})
	require.ErrorIs(t, err, cderr.ErrDuplicateKey)
	var dk *cderr.DuplicateKeyError
	require.ErrorAs(t, err, &dk)
	assert.Equal(t, uint32(2), dk.Key)

	m, err := partition.Merge([]*store.Store{a, b}, partition.MergeOptions{Strict: true, ResetKeys: true})
	require.NoError(t, err)
	assert.Equal(t, 6, m.Len())
}

func TestMergeResetKeys(t *testing.T) {
	a := sequential(t, compress.Gzip, 5, 2)
	b := sequential(t, compress.Gzip, 5, 3)

	m, err := partition.Merge([]*store.Store{a, b}, partition.MergeOptions{ResetKeys: true})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, m.KeyList())
	want := []int64{5, 6, 5, 6, 7}
	for i, w := range want {
		assert.Equal(t, w, intField(t, m, uint32(i)))
	}
}

func TestMergeRecompresses(t *testing.T) {
	a := sequential(t, compress.XZ, 0, 3)
	b := sequential(t, compress.Gzip, 3, 3)

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	m, err := partition.Merge([]*store.Store{a, b}, partition.MergeOptions{Logger: &logger})
	require.NoError(t, err)
	assert.Equal(t, compress.XZ, m.Algorithm())
	for k := range uint32(6) {
		assert.Equal(t, int64(k), intField(t, m, k))
	}
	assert.Contains(t, logs.String(), "recompressing merge input")
	assert.Contains(t, logs.String(), "merged stores")
	assert.Equal(t, compress.Gzip, b.Algorithm())

	m, err = partition.Merge([]*store.Store{a, b}, partition.MergeOptions{Algorithm: compress.Zstd})
	require.NoError(t, err)
	assert.Equal(t, compress.Zstd, m.Algorithm())
	assert.Equal(t, int64(4), intField(t, m, 4))
}

func TestMergeSplitRoundTrip(t *testing.T) {
	s := sequential(t, compress.BZ2, 0, 20)
	sp, err := partition.Split(s, partition.SplitOptions{PartsLength: 6})
	require.NoError(t, err)

	m, err := partition.Merge(collect(t, sp), partition.MergeOptions{})
	require.NoError(t, err)
	eq, err := m.Equal(s)
	require.NoError(t, err)
	assert.True(t, eq)
	assert.Equal(t, s.KeyList(), m.KeyList())
}

func TestMergeInvalidArguments(t *testing.T) {
	_, err := partition.Merge(nil, partition.MergeOptions{})
	require.ErrorIs(t, err, cderr.ErrInvalidArgument)

	_, err = partition.Merge([]*store.Store{store.New(compress.Gzip), nil}, partition.MergeOptions{})
	require.ErrorIs(t, err, cderr.ErrInvalidArgument)

	_, err = partition.Merge([]*store.Store{store.New(compress.Gzip)}, partition.MergeOptions{Algorithm: "rar"})
	require.ErrorIs(t, err, cderr.ErrUnsupportedAlgorithm)
}
