// This file implements utilities for parsing and validating request data:
// JSON bodies, path identifiers and month parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgeting/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

const dateLayout = "2006-01-02"

// errBadRequest marks malformed requests, as opposed to well-formed
// requests the ledger rejects.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads one JSON object from the body into dst. Unknown fields
// and trailing data are rejected. Validation errors raised by field types
// (amounts, main categories) are returned unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, core.ErrValidation):
			return err
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body exceeds %d bytes", maxErr.Limit)
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// pathPeriod parses the {year}/{month} path values.
func pathPeriod(r *http.Request) (core.Period, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return core.Period{}, badRequest("invalid year %q", r.PathValue("year"))
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return core.Period{}, badRequest("invalid month %q", r.PathValue("month"))
	}
	return core.NewPeriod(year, month)
}

// queryPeriod reads ?year=&month=, defaulting to the month of now. Both or
// neither must be given.
func queryPeriod(r *http.Request, now time.Time) (core.Period, error) {
	q := r.URL.Query()
	ys, ms := strings.TrimSpace(q.Get("year")), strings.TrimSpace(q.Get("month"))
	if ys == "" && ms == "" {
		return core.PeriodOf(now), nil
	}
	year, err := strconv.Atoi(ys)
	if err != nil {
		return core.Period{}, badRequest("invalid year %q", ys)
	}
	month, err := strconv.Atoi(ms)
	if err != nil {
		return core.Period{}, badRequest("invalid month %q", ms)
	}
	return core.NewPeriod(year, month)
}

// parseDate parses a YYYY-MM-DD date. Empty means today.
func parseDate(field, s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.Invalid(field, "must be a date formatted YYYY-MM-DD")
	}
	return t, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// writeRequestError writes a 400 for malformed requests and defers to the
// ledger mapping for everything else.
func writeRequestError(w http.ResponseWriter, r *http.Request, op string, planID int64, err error) {
	if errors.Is(err, errBadRequest) {
		BadRequestError(err.Error()).Write(w)
		return
	}
	writeLedgerError(w, r, op, planID, "", err)
}
