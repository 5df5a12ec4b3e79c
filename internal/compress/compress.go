// Package compress wraps the compression algorithms a dictionary can use for
// its values and its dump files.
//
// Every algorithm is identified by a stable name that is written into dump
// files, so names must never change.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/freeeve/cdict/internal/cderr"
)

// Algorithm is a compression algorithm identifier.
type Algorithm string

const (
	Gzip Algorithm = "gzip"
	BZ2  Algorithm = "bz2"
	XZ   Algorithm = "xz"
	Zstd Algorithm = "zstd"
	LZ4  Algorithm = "lz4"
)

// Default is the algorithm used when none is configured.
const Default = BZ2

type codec struct {
	magic      []byte
	extensions []string // first entry is canonical
	compress   func(dst *bytes.Buffer, src []byte) error
	decompress func(src []byte) ([]byte, error)
}

var registry = map[Algorithm]codec{
	Gzip: {
		magic:      []byte{0x1f, 0x8b},
		extensions: []string{".gz", ".gzip"},
		compress: func(dst *bytes.Buffer, src []byte) error {
			w, err := gzip.NewWriterLevel(dst, gzip.BestCompression)
			if err != nil {
				return err
			}
			return writeAndClose(w, src)
		},
		decompress: func(src []byte) ([]byte, error) {
			r, err := gzip.NewReader(bytes.NewReader(src))
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return io.ReadAll(r)
		},
	},
	BZ2: {
		magic:      []byte("BZh"),
		extensions: []string{".bz2"},
		compress: func(dst *bytes.Buffer, src []byte) error {
			w, err := bzip2.NewWriter(dst, &bzip2.WriterConfig{Level: bzip2.BestCompression})
			if err != nil {
				return err
			}
			return writeAndClose(w, src)
		},
		decompress: func(src []byte) ([]byte, error) {
			r, err := bzip2.NewReader(bytes.NewReader(src), nil)
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return io.ReadAll(r)
		},
	},
	XZ: {
		magic:      []byte{0xfd, '7', 'z', 'X', 'Z', 0x00},
		extensions: []string{".xz"},
		compress: func(dst *bytes.Buffer, src []byte) error {
			w, err := xz.NewWriter(dst)
			if err != nil {
				return err
			}
			return writeAndClose(w, src)
		},
		decompress: func(src []byte) ([]byte, error) {
			r, err := xz.NewReader(bytes.NewReader(src))
			if err != nil {
				return nil, err
			}
			return io.ReadAll(r)
		},
	},
	Zstd: {
		magic:      []byte{0x28, 0xb5, 0x2f, 0xfd},
		extensions: []string{".zst", ".zstd"},
		compress: func(dst *bytes.Buffer, src []byte) error {
			enc, _ := zstdCoders()
			dst.Write(enc.EncodeAll(src, nil))
			return nil
		},
		decompress: func(src []byte) ([]byte, error) {
			_, dec := zstdCoders()
			return dec.DecodeAll(src, nil)
		},
	},
	LZ4: {
		magic:      []byte{0x04, 0x22, 0x4d, 0x18},
		extensions: []string{".lz4"},
		compress: func(dst *bytes.Buffer, src []byte) error {
			return writeAndClose(lz4.NewWriter(dst), src)
		},
		decompress: func(src []byte) ([]byte, error) {
			return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
		},
	},
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
)

// zstdCoders returns process-wide zstd coders. EncodeAll and DecodeAll are
// safe for concurrent use.
func zstdCoders() (*zstd.Encoder, *zstd.Decoder) {
	zstdOnce.Do(func() {
		// Neither constructor fails with a nil io.Writer/io.Reader and valid options.
		// Zero frames keep empty inputs self-describing.
		zstdEnc, _ = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithZeroFrames(true))
		zstdDec, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return zstdEnc, zstdDec
}

func writeAndClose(w io.WriteCloser, src []byte) error {
	if _, err := w.Write(src); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Parse returns the Algorithm named name, or an UnsupportedAlgorithmError.
func Parse(name string) (Algorithm, error) {
	alg := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := registry[alg]; !ok {
		return "", &cderr.UnsupportedAlgorithmError{Name: name}
	}
	return alg, nil
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	_, ok := registry[a]
	return ok
}

func (a Algorithm) String() string { return string(a) }

// Extension returns the conventional file extension for a, including the dot.
func (a Algorithm) Extension() string {
	c, ok := registry[a]
	if !ok {
		return ""
	}
	return c.extensions[0]
}

// All returns every known algorithm sorted by name.
func All() []Algorithm {
	out := make([]Algorithm, 0, len(registry))
	for a := range registry {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Compress compresses src with a.
func Compress(a Algorithm, src []byte) ([]byte, error) {
	c, ok := registry[a]
	if !ok {
		return nil, &cderr.UnsupportedAlgorithmError{Name: string(a)}
	}
	var buf bytes.Buffer
	if err := c.compress(&buf, src); err != nil {
		return nil, fmt.Errorf("compress %s: %w", a, err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Malformed input yields a CorruptDataError.
func Decompress(a Algorithm, src []byte) ([]byte, error) {
	c, ok := registry[a]
	if !ok {
		return nil, &cderr.UnsupportedAlgorithmError{Name: string(a)}
	}
	if !bytes.HasPrefix(src, c.magic) {
		return nil, cderr.Corrupt("decompress", fmt.Sprintf("missing %s stream header", a), nil)
	}
	out, err := c.decompress(src)
	if err != nil {
		return nil, cderr.Corrupt("decompress", string(a), err)
	}
	return out, nil
}

// Detect identifies the algorithm that produced data from its stream magic.
func Detect(data []byte) (Algorithm, bool) {
	for _, a := range All() {
		if bytes.HasPrefix(data, registry[a].magic) {
			return a, true
		}
	}
	return "", false
}

// FromPath infers an algorithm from the extension of path.
func FromPath(path string) (Algorithm, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	for a, c := range registry {
		for _, e := range c.extensions {
			if e == ext {
				return a, true
			}
		}
	}
	return "", false
}
