package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgeting/internal/log"
)

func newTracedHandler(buf *bytes.Buffer, h http.Handler) (*Middleware, http.Handler) {
	logger := log.New(log.Config{
		Component: "test",
		Handler:   slog.NewJSONHandler(buf, nil),
	})
	m := NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" })
	return m, m.Middleware(h)
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	var ctxLogger *log.Logger
	_, h := newTracedHandler(&buf, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ctxLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/plans", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
	}
	if ctxLogger == nil || ctxLogger.Component() != "test" {
		t.Error("request logger not stored in context")
	}

	var rec2 map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec2); err != nil {
		t.Fatalf("decode log: %v (%s)", err, buf.String())
	}
	if rec2[log.FieldRequestID] != seen {
		t.Errorf("logged request id = %v", rec2[log.FieldRequestID])
	}
	if rec2[log.FieldStatusCode] != float64(http.StatusCreated) {
		t.Errorf("logged status = %v", rec2[log.FieldStatusCode])
	}
	if rec2[log.FieldClientIP] != "192.0.2.1" {
		t.Errorf("logged client ip = %v", rec2[log.FieldClientIP])
	}
}

func TestMiddleware_KeepsValidUpstreamID(t *testing.T) {
	var buf bytes.Buffer
	_, h := newTracedHandler(&buf, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "edge-1234")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "edge-1234" {
		t.Errorf("request id = %q, want edge-1234", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); !strings.HasPrefix(got, "req_") {
		t.Errorf("invalid upstream id should be replaced, got %q", got)
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	var buf bytes.Buffer
	status := http.StatusOK
	m, h := newTracedHandler(&buf, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	for _, s := range []int{http.StatusOK, http.StatusConflict, http.StatusNotFound, http.StatusInternalServerError} {
		status = s
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 4 || got.ClientErrors != 2 || got.ServerErrors != 1 || got.InFlight != 0 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("GetRequestID = %q, want empty", id)
	}
}
