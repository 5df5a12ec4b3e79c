// Package persist writes entry stores to single dictionary files and reads
// them back.
//
// A dictionary file holds every blob unchanged inside a checksummed frame,
// and the frame as a whole is compressed a second time with the store's
// algorithm. Loading infers that algorithm from the compressed stream's
// magic bytes, falling back to the file extension.
package persist

import (
	"context"
	"fmt"
	"os"

	"github.com/freeeve/cdict/internal/blob"
	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/store"
)

// Encode serializes s into the bytes of a dictionary file.
func Encode(s *store.Store, opts ...Option) ([]byte, error) {
	o := buildOptions(opts)
	alg := s.Algorithm()
	if o.alg != "" {
		alg = o.alg
	}
	if !alg.Valid() {
		return nil, &cderr.UnsupportedAlgorithmError{Name: string(alg)}
	}

	inner, n, err := encodeInner(s, alg, o.limit)
	if err != nil {
		return nil, err
	}
	out, err := compress.Compress(alg, inner)
	if err != nil {
		return nil, err
	}
	o.logger.Debug().
		Str("alg", alg.String()).
		Int("entries", n).
		Int("inner_bytes", len(inner)).
		Int("file_bytes", len(out)).
		Msg("encoded dictionary")
	return out, nil
}

// Decode parses the bytes of a dictionary file.
func Decode(data []byte, opts ...Option) (*store.Store, error) {
	o := buildOptions(opts)
	alg, err := inferAlgorithm(data, o)
	if err != nil {
		return nil, err
	}

	inner, err := compress.Decompress(alg, data)
	if err != nil {
		return nil, err
	}
	s, err := decodeInner(inner, alg, o.limit)
	if err != nil {
		return nil, err
	}
	o.logger.Debug().
		Str("alg", alg.String()).
		Int("entries", s.Len()).
		Int("file_bytes", len(data)).
		Msg("decoded dictionary")
	return s, nil
}

func inferAlgorithm(data []byte, o options) (compress.Algorithm, error) {
	if o.alg != "" {
		if !o.alg.Valid() {
			return "", &cderr.UnsupportedAlgorithmError{Name: string(o.alg)}
		}
		return o.alg, nil
	}
	if alg, ok := compress.Detect(data); ok {
		return alg, nil
	}
	if alg, ok := compress.FromPath(o.name); ok {
		return alg, nil
	}
	return "", &cderr.UnsupportedAlgorithmError{}
}

// DumpFile writes s to path. The file is written under a temporary name and
// renamed into place, so a failed dump never leaves a partial file at path.
func DumpFile(s *store.Store, path string, opts ...Option) error {
	data, err := Encode(s, opts...)
	if err != nil {
		return fmt.Errorf("dump %s: %w", path, err)
	}
	if err := blob.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("dump %s: %w", path, err)
	}
	return nil
}

// LoadFile reads the dictionary file at path.
func LoadFile(path string, opts ...Option) (*store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	s, err := Decode(data, append([]Option{withName(path)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// Dump writes s as object name in b with a single Put.
func Dump(ctx context.Context, b blob.Bucket, name string, s *store.Store, opts ...Option) error {
	data, err := Encode(s, opts...)
	if err != nil {
		return fmt.Errorf("dump %s: %w", name, err)
	}
	if err := b.Put(ctx, name, data); err != nil {
		return fmt.Errorf("dump %s: %w", name, err)
	}
	return nil
}

// Load reads object name from b.
func Load(ctx context.Context, b blob.Bucket, name string, opts ...Option) (*store.Store, error) {
	data, err := b.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	s, err := Decode(data, append([]Option{withName(name)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return s, nil
}

// LoadURI loads a dictionary from a local path or an s3:// or minio:// URI.
func LoadURI(ctx context.Context, uri string, cfg blob.Config, opts ...Option) (*store.Store, error) {
	b, name, err := blob.Resolve(ctx, uri, cfg)
	if err != nil {
		return nil, err
	}
	return Load(ctx, b, name, opts...)
}

// DumpURI dumps s to a local path or an s3:// or minio:// URI.
func DumpURI(ctx context.Context, uri string, s *store.Store, cfg blob.Config, opts ...Option) error {
	b, name, err := blob.Resolve(ctx, uri, cfg)
	if err != nil {
		return err
	}
	return Dump(ctx, b, name, s, opts...)
}
