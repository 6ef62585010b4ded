package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budgeting/internal/core"
)

func TestResponseBuilderJSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/plans/7").
		JSON(map[string]int{"id": 7}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status=%d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type=%q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/plans/7" {
		t.Errorf("Location=%q", got)
	}
	if got := w.Body.String(); got != "{\"id\":7}\n" {
		t.Errorf("body=%q", got)
	}
}

func TestResponseBuilderNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).JSON("ignored").Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestResponseBuilderEncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
}

func TestErrorFromLedger(t *testing.T) {
	mar := core.Period{Year: 2024, Month: time.March}
	overflow := &core.OverflowError{
		Scope:        core.ScopeMainCategory,
		MainCategory: core.Needs,
		Period:       mar,
		Limit:        core.Cents(500000),
		Committed:    core.Cents(100000),
		Allowed:      core.Cents(400000),
		Requested:    core.Cents(450000),
	}

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantBody  string
		wantField string
	}{
		{"validation", core.Invalid("name", "cannot be blank"), http.StatusUnprocessableEntity, "validation", "name"},
		{"wrapped validation", fmt.Errorf("create: %w", core.Invalid("ratios", "bad")), http.StatusUnprocessableEntity, "validation", "ratios"},
		{"overflow", overflow, http.StatusConflict, "overflow", ""},
		{"not found", core.NotFound("plan", 3), http.StatusNotFound, "not_found", ""},
		{"consistency", &core.ConsistencyError{Reason: "spent drifted"}, http.StatusInternalServerError, "internal", ""},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "internal", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromLedger(tt.err).Write(w)

			if w.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d", w.Code, tt.wantCode)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.wantBody || body.Error.Field != tt.wantField {
				t.Fatalf("error=%+v", body.Error)
			}
			if tt.wantCode == http.StatusInternalServerError && body.Error.Message != "internal server error" {
				t.Fatalf("internal details leaked: %q", body.Error.Message)
			}
		})
	}

	w := httptest.NewRecorder()
	ErrorFromLedger(overflow).Write(w)
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Shortfall == nil || body.Error.Shortfall.Cents != 50000 {
		t.Fatalf("shortfall=%v", body.Error.Shortfall)
	}
	if body.Error.Allowed.Cents != 400000 || body.Error.Requested.Cents != 450000 {
		t.Fatalf("allowed=%v requested=%v", body.Error.Allowed, body.Error.Requested)
	}
}
