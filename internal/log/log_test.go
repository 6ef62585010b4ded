package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"testing"

	"budgeting/internal/core"
)

func newJSONLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{
		Level:     level,
		Component: "test",
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}),
	})
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) == 0 || len(lines[len(lines)-1]) == 0 {
		t.Fatal("no log output")
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	return rec
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelInfo)

	logger.Info("hello", "k", "v")
	rec := lastRecord(t, &buf)
	if rec[FieldComponent] != "test" {
		t.Errorf("component = %v, want test", rec[FieldComponent])
	}
	if rec["k"] != "v" {
		t.Errorf("k = %v, want v", rec["k"])
	}

	logger.WithComponent(ComponentLedger).Warn("switched")
	rec = lastRecord(t, &buf)
	if rec[FieldComponent] != ComponentLedger {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentLedger)
	}
	if logger.Component() != "test" {
		t.Errorf("WithComponent must not mutate the receiver")
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelWarn)

	logger.Info("dropped")
	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %s", buf.String())
	}
	logger.Error("kept")
	if rec := lastRecord(t, &buf); rec["msg"] != "kept" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Errorf("fallback component = %q", l.Component())
	}

	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelInfo)
	ctx := context.WithValue(context.Background(), LoggerContextKey, logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger stored in context")
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", core.Invalid("amount", "must be positive"), ErrorTypeValidation},
		{"overflow", fmt.Errorf("assign: %w", &core.OverflowError{Scope: core.ScopePool}), ErrorTypeOverflow},
		{"not found", core.NotFound("plan", 7), ErrorTypeNotFound},
		{"timeout", context.DeadlineExceeded, ErrorTypeTimeout},
		{"other", errors.New("boom"), ErrorTypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(tt.err); got != tt.want {
				t.Errorf("ErrorType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogLedgerRejection(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, slog.LevelInfo))

	err := &core.OverflowError{
		Scope:        core.ScopeMainCategory,
		MainCategory: core.Needs,
		Limit:        core.Cents(500000),
		Committed:    core.Cents(100000),
		Allowed:      core.Cents(400000),
		Requested:    core.Cents(450000),
	}
	sl.LogLedgerRejection(context.Background(), OpAssign, 3, "2024-03", err)

	rec := lastRecord(t, &buf)
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
	if rec[FieldComponent] != ComponentLedger {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if rec[FieldPlanID] != float64(3) || rec[FieldPeriod] != "2024-03" {
		t.Errorf("plan fields = %v %v", rec[FieldPlanID], rec[FieldPeriod])
	}
	if rec[FieldErrorType] != ErrorTypeOverflow {
		t.Errorf("error_type = %v", rec[FieldErrorType])
	}
	if rec[FieldMainCategory] != string(core.Needs) {
		t.Errorf("main_category = %v", rec[FieldMainCategory])
	}
	if rec["shortfall_cents"] != float64(50000) {
		t.Errorf("shortfall_cents = %v", rec["shortfall_cents"])
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{409, "WARN"},
		{500, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newJSONLogger(&buf, slog.LevelInfo))
		r := httptest.NewRequest("GET", "/plans?x=1", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")

		rec := lastRecord(t, &buf)
		if rec["level"] != tt.level {
			t.Errorf("status %d: level = %v, want %s", tt.status, rec["level"], tt.level)
		}
		if rec[FieldPath] != "/plans" || rec[FieldQuery] != "x=1" {
			t.Errorf("status %d: path/query = %v %v", tt.status, rec[FieldPath], rec[FieldQuery])
		}
	}
}

func TestLogFieldsWithAmount(t *testing.T) {
	f := NewFields().WithAmount(0, 1500)
	if _, ok := f[FieldCategoryID]; ok {
		t.Error("zero category id should be omitted")
	}
	if f[FieldAmountCents] != int64(1500) {
		t.Errorf("amount = %v", f[FieldAmountCents])
	}
	if len(NewFields().WithError(nil)) != 0 {
		t.Error("nil error should add nothing")
	}
}
