package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/store"
)

const (
	defaultKeysLimit = 100
	maxKeysLimit     = 10000
)

// AlgorithmHeader names the compression algorithm of a raw blob response.
const AlgorithmHeader = "X-Cdict-Algorithm"

// Handler serves a loaded store read-only.
type Handler struct {
	s      *store.Store
	source string
	log    zerolog.Logger
}

// NewRouter creates the HTTP router over s. source is reported by /v1/stats.
// The store must not be mutated while the router is serving.
func NewRouter(log zerolog.Logger, s *store.Store, source string) http.Handler {
	h := &Handler{s: s, source: source, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /readyz", h.health)
	mux.HandleFunc("GET /v1/stats", h.stats)
	mux.HandleFunc("GET /v1/keys", h.keys)
	mux.HandleFunc("GET /v1/entries/{key}", h.entry)
	mux.HandleFunc("GET /v1/entries/{key}/raw", h.raw)

	// pprof endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return RequestID(AccessLog(log, mux))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatsResponse(h.source, h.s))
}

func (h *Handler) keys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := intParam(q.Get("limit"), defaultKeysLimit)
	if err != nil || limit <= 0 {
		writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxKeysLimit)

	all := h.s.KeyList()
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	writeJSON(w, http.StatusOK, KeysResponse{
		Keys:   all[start:end],
		Offset: offset,
		Limit:  limit,
		Total:  len(all),
	})
}

func (h *Handler) entry(w http.ResponseWriter, r *http.Request) {
	key, ok := h.parseKey(w, r)
	if !ok {
		return
	}
	v, err := h.s.Get(key)
	if err != nil {
		h.storeError(w, r, key, err)
		return
	}
	body, err := json.Marshal(EntryResponse{Key: key, Value: v})
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "value has no JSON form; fetch the raw blob instead")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(body, '\n'))
}

func (h *Handler) raw(w http.ResponseWriter, r *http.Request) {
	key, ok := h.parseKey(w, r)
	if !ok {
		return
	}
	blob, err := h.s.Raw(key)
	if err != nil {
		h.storeError(w, r, key, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(AlgorithmHeader, h.s.Algorithm().String())
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	_, _ = w.Write(blob)
}

func (h *Handler) parseKey(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	k, err := strconv.ParseUint(r.PathValue("key"), 10, 32)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "key must be an unsigned 32-bit integer")
		return 0, false
	}
	return uint32(k), true
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, key uint32, err error) {
	if errors.Is(err, cderr.ErrKeyNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Uint32("key", key).Msg("get entry")
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
