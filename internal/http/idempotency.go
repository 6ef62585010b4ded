package http

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"budgeting/internal/cache"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"

	idempotencyTTL       = 10 * time.Minute
	idempotencyMaxKeys   = 10000
	maxIdempotencyKeyLen = 255
)

// storedResponse is a replayable copy of a completed POST.
type storedResponse struct {
	status      int
	contentType string
	body        []byte
}

func (s storedResponse) write(w http.ResponseWriter, replayed bool) {
	if s.contentType != "" {
		w.Header().Set("Content-Type", s.contentType)
	}
	if replayed {
		w.Header().Set(IdempotentReplayHeader, "true")
	}
	w.WriteHeader(s.status)
	_, _ = w.Write(s.body)
}

// idempotency replays the stored response of a POST that was already
// executed with the same Idempotency-Key by the same user. Concurrent
// duplicates wait for the first one and share its response. Server errors
// are not stored so the client may retry them.
type idempotency struct {
	responses *cache.LRUCache[storedResponse]
	inflight  singleflight.Group
}

func newIdempotency() *idempotency {
	return &idempotency{
		responses: cache.NewLRUCache[storedResponse](idempotencyMaxKeys, idempotencyTTL),
	}
}

func (i *idempotency) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			BadRequestError(IdempotencyKeyHeader + " is too long").Write(w)
			return
		}

		cacheKey := userFrom(r.Context()) + "\x00" + r.URL.Path + "\x00" + key
		if stored, ok := i.responses.Get(cacheKey); ok {
			stored.write(w, true)
			return
		}

		executed := false
		v, _, _ := i.inflight.Do(cacheKey, func() (any, error) {
			// a duplicate may have finished between the lookup above and here
			if stored, ok := i.responses.Get(cacheKey); ok {
				return stored, nil
			}
			executed = true
			rec := &recorder{header: make(http.Header), status: http.StatusOK}
			next.ServeHTTP(rec, r)
			stored := storedResponse{
				status:      rec.status,
				contentType: rec.header.Get("Content-Type"),
				body:        rec.body.Bytes(),
			}
			if stored.status < 500 {
				i.responses.Set(cacheKey, stored)
			}
			return stored, nil
		})
		v.(storedResponse).write(w, !executed)
	})
}

// recorder buffers a handler's response so it can be stored and shared.
type recorder struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(b)
}
