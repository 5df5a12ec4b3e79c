package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/freeeve/cdict/internal/store"
	"github.com/freeeve/cdict/internal/value"
)

// StatsResponse describes the served dictionary.
type StatsResponse struct {
	Source       string  `json:"source,omitempty"`
	Algorithm    string  `json:"algorithm"`
	Entries      int     `json:"entries"`
	BlobBytes    int64   `json:"blob_bytes"`
	KeyBytes     int64   `json:"key_bytes"`
	AvgBlobBytes float64 `json:"avg_blob_bytes"`
}

// KeysResponse is one page of keys in insertion order.
type KeysResponse struct {
	Keys   []uint32 `json:"keys"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
	Total  int      `json:"total"`
}

// EntryResponse is one decoded entry.
type EntryResponse struct {
	Key   uint32      `json:"key"`
	Value value.Value `json:"value"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func toStatsResponse(source string, s *store.Store) StatsResponse {
	st := s.Stats()
	return StatsResponse{
		Source:       source,
		Algorithm:    s.Algorithm().String(),
		Entries:      st.Entries,
		BlobBytes:    st.BlobBytes,
		KeyBytes:     st.KeyBytes,
		AvgBlobBytes: st.AvgBlobBytes(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: GetRequestID(r.Context())})
}
