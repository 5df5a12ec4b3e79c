package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/codec"
	"github.com/freeeve/cdict/internal/compress"
	"github.com/freeeve/cdict/internal/store"
)

// Dictionary file format, before the outer compression pass. All integers
// are little-endian.
//
//	magic        [4]byte "CDIC"
//	version      uint16
//	flags        uint16 (reserved, 0)
//	alg length   uint8
//	alg name     [alg length]byte
//	entry count  uint32
//	entries      count x (key uint32, blob length uint32, blob)
//	checksum     uint32 CRC-32 (IEEE) of every preceding byte
//
// The whole stream is then compressed with the algorithm it names, the same
// one every blob is compressed with.
const (
	Magic         = "CDIC"
	FormatVersion = uint16(1)

	fixedHeaderSize = 4 + 2 + 2 + 1
	countSize       = 4
	entryHeaderSize = 4 + 4
	checksumSize    = 4
)

// encodeInner builds the uncompressed stream. Blobs are recompressed from
// the store's algorithm to alg when the two differ.
func encodeInner(s *store.Store, alg compress.Algorithm, limit int) ([]byte, int, error) {
	n := s.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	if uint64(n) > math.MaxUint32 {
		return nil, 0, &cderr.UnsupportedValueError{Path: "$", Type: "store", Reason: fmt.Sprintf("%d entries exceed the uint32 count field", n)}
	}

	st := s.Stats()
	size := fixedHeaderSize + len(alg) + countSize + n*entryHeaderSize + int(st.BlobBytes) + checksumSize
	buf := make([]byte, 0, size)

	buf = append(buf, Magic...)
	buf = binary.LittleEndian.AppendUint16(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	buf = append(buf, byte(len(alg)))
	buf = append(buf, alg...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n))

	written := 0
	for key, blob := range s.Blobs() {
		if written == n {
			break
		}
		blob, err := codec.Recompress(blob, s.Algorithm(), alg)
		if err != nil {
			return nil, 0, fmt.Errorf("encode key %d: %w", key, err)
		}
		if err := checkBlobLen(key, len(blob)); err != nil {
			return nil, 0, err
		}
		buf = binary.LittleEndian.AppendUint32(buf, key)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(blob)))
		buf = append(buf, blob...)
		written++
	}

	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf, written, nil
}

// checkBlobLen rejects blobs whose length does not fit the uint32 length
// field.
func checkBlobLen(key uint32, n int) error {
	if uint64(n) > math.MaxUint32 {
		return &cderr.UnsupportedValueError{
			Path:   fmt.Sprintf("key %d", key),
			Type:   "blob",
			Reason: fmt.Sprintf("%d compressed bytes exceed the %d byte entry limit", n, uint64(math.MaxUint32)),
		}
	}
	return nil
}

func corrupt(format string, args ...any) error {
	return cderr.Corrupt("load", fmt.Sprintf(format, args...), nil)
}

// decodeInner parses an uncompressed stream that was decompressed with alg.
func decodeInner(data []byte, alg compress.Algorithm, limit int) (*store.Store, error) {
	if len(data) < fixedHeaderSize+countSize+checksumSize {
		return nil, corrupt("stream too short (%d bytes)", len(data))
	}
	if string(data[:4]) != Magic {
		return nil, corrupt("bad magic %q", data[:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != FormatVersion {
		return nil, corrupt("unsupported format version %d", v)
	}
	if flags := binary.LittleEndian.Uint16(data[6:8]); flags != 0 {
		return nil, corrupt("unknown flags 0x%04x", flags)
	}

	body := data[:len(data)-checksumSize]
	want := binary.LittleEndian.Uint32(data[len(data)-checksumSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, corrupt("checksum mismatch: got %08x, want %08x", got, want)
	}

	off := fixedHeaderSize
	nameLen := int(data[8])
	if off+nameLen+countSize > len(body) {
		return nil, corrupt("algorithm tag overruns stream")
	}
	tag := compress.Algorithm(body[off : off+nameLen])
	off += nameLen
	if !tag.Valid() {
		return nil, &cderr.UnsupportedAlgorithmError{Name: string(tag)}
	}
	if tag != alg {
		return nil, corrupt("file is tagged %s but stream is %s", tag, alg)
	}

	count := int(binary.LittleEndian.Uint32(body[off:]))
	off += countSize
	if uint64(count)*entryHeaderSize > uint64(len(body)-off) {
		return nil, corrupt("entry count %d exceeds %d remaining bytes", count, len(body)-off)
	}

	keep := count
	if limit > 0 && limit < count {
		keep = limit
	}
	s := store.WithCapacity(tag, keep)
	seen := roaring.New()
	for i := 0; i < count; i++ {
		if len(body)-off < entryHeaderSize {
			return nil, corrupt("entry %d: truncated header", i)
		}
		key := binary.LittleEndian.Uint32(body[off:])
		blobLen := int(binary.LittleEndian.Uint32(body[off+4:]))
		off += entryHeaderSize
		if blobLen > len(body)-off {
			return nil, corrupt("entry %d (key %d): blob length %d exceeds %d remaining bytes", i, key, blobLen, len(body)-off)
		}
		if !seen.CheckedAdd(key) {
			return nil, corrupt("entry %d: duplicate key %d", i, key)
		}
		if i < keep {
			blob := body[off : off+blobLen : off+blobLen]
			if keep < count {
				// Copy so the rest of the stream can be released.
				blob = bytes.Clone(blob)
			}
			s.SetRaw(key, blob)
		}
		off += blobLen
	}
	if off != len(body) {
		return nil, corrupt("%d trailing bytes after %d entries", len(body)-off, count)
	}
	return s, nil
}
