package store

import "fmt"

// KeySize is the encoded size of a key in bytes.
const KeySize = 4

// Stats holds size statistics about a store.
type Stats struct {
	Entries   int
	BlobBytes int64 // sum of compressed blob sizes
	KeyBytes  int64 // Entries * KeySize
}

// Stats returns size statistics for the live entries.
func (s *Store) Stats() Stats {
	st := Stats{Entries: s.Len(), KeyBytes: int64(s.Len()) * KeySize}
	for _, e := range s.entries {
		if e.live {
			st.BlobBytes += int64(len(e.blob))
		}
	}
	return st
}

// AvgBlobBytes returns the mean compressed blob size.
func (st Stats) AvgBlobBytes() float64 {
	if st.Entries == 0 {
		return 0
	}
	return float64(st.BlobBytes) / float64(st.Entries)
}

func (st Stats) String() string {
	return fmt.Sprintf("entries=%d blob_bytes=%d key_bytes=%d", st.Entries, st.BlobBytes, st.KeyBytes)
}
