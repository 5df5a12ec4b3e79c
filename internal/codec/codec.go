// Package codec turns canonical values into compressed blobs and back.
//
// A blob is the canonical encoding (see Marshal) compressed with one
// algorithm. The two layers are kept apart so blobs can change algorithm
// without being decoded.
package codec

import (
	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/value"
)

// Encode serializes v canonically and compresses it with alg.
func Encode(v value.Value, alg compress.Algorithm) ([]byte, error) {
	raw, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return compress.Compress(alg, raw)
}

// EncodeAny converts x with value.FromAny and encodes it.
func EncodeAny(x any, alg compress.Algorithm) ([]byte, error) {
	v, err := value.FromAny(x)
	if err != nil {
		return nil, err
	}
	return Encode(v, alg)
}

// Decode decompresses blob with alg and parses the canonical encoding.
func Decode(blob []byte, alg compress.Algorithm) (value.Value, error) {
	raw, err := compress.Decompress(alg, blob)
	if err != nil {
		return value.Value{}, err
	}
	return Unmarshal(raw)
}

// Recompress moves blob from one algorithm to another without touching the
// canonical encoding. Equal algorithms return blob unchanged.
func Recompress(blob []byte, from, to compress.Algorithm) ([]byte, error) {
	if !from.Valid() {
		return nil, unsupported(from)
	}
	if !to.Valid() {
		return nil, unsupported(to)
	}
	if from == to {
		return blob, nil
	}
	raw, err := compress.Decompress(from, blob)
	if err != nil {
		return nil, err
	}
	return compress.Compress(to, raw)
}

func unsupported(a compress.Algorithm) error {
	return &cderr.UnsupportedAlgorithmError{Name: string(a)}
}
