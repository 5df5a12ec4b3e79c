package compress_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/compress"
)

func TestRoundTripAllAlgorithms(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		bytes.Repeat([]byte("the quick brown fox "), 500),
	}
	for _, alg := range compress.All() {
		t.Run(alg.String(), func(t *testing.T) {
			for _, p := range payloads {
				c, err := compress.Compress(alg, p)
				require.NoError(t, err)

				detected, ok := compress.Detect(c)
				require.True(t, ok)
				assert.Equal(t, alg, detected)

				d, err := compress.Decompress(alg, c)
				require.NoError(t, err)
				assert.Equal(t, len(p), len(d))
				assert.True(t, bytes.Equal(p, d))
			}
		})
	}
}

func TestDecompressCorrupt(t *testing.T) {
	for _, alg := range compress.All() {
		t.Run(alg.String(), func(t *testing.T) {
			_, err := compress.Decompress(alg, []byte("not compressed at all"))
			require.ErrorIs(t, err, cderr.ErrCorruptData)

			c, err := compress.Compress(alg, bytes.Repeat([]byte("abc"), 1000))
			require.NoError(t, err)
			_, err = compress.Decompress(alg, c[:len(c)/2])
			require.ErrorIs(t, err, cderr.ErrCorruptData)
		})
	}
}

func TestParse(t *testing.T) {
	alg, err := compress.Parse(" GZIP ")
	require.NoError(t, err)
	assert.Equal(t, compress.Gzip, alg)

	_, err = compress.Parse("rar")
	require.ErrorIs(t, err, cderr.ErrUnsupportedAlgorithm)

	_, err = compress.Compress(compress.Algorithm("rar"), nil)
	require.ErrorIs(t, err, cderr.ErrUnsupportedAlgorithm)
}

func TestFromPath(t *testing.T) {
	cases := map[string]compress.Algorithm{
		"data.gz":          compress.Gzip,
		"/tmp/x/data.BZ2":  compress.BZ2,
		"a.b.xz":           compress.XZ,
		"dict-split-0.zst": compress.Zstd,
		"dict.lz4":         compress.LZ4,
		"file.gzip":        compress.Gzip,
	}
	for path, want := range cases {
		got, ok := compress.FromPath(path)
		require.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}

	_, ok := compress.FromPath("noext")
	assert.False(t, ok)
	_, ok = compress.FromPath("data.json")
	assert.False(t, ok)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".bz2", compress.Default.Extension())
	assert.Equal(t, ".gz", compress.Gzip.Extension())
	assert.Equal(t, ".zst", compress.Zstd.Extension())
	assert.Equal(t, "", compress.Algorithm("nope").Extension())
	assert.False(t, compress.Algorithm("nope").Valid())
}

func TestDetectUnknown(t *testing.T) {
	_, ok := compress.Detect([]byte("PK\x03\x04"))
	assert.False(t, ok)
	_, ok = compress.Detect(nil)
	assert.False(t, ok)
}
