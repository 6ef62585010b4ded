package memory

import (
	"context"
	"fmt"
	"sync"

	"budgeting/internal/core"
)

type exportKey struct {
	planID int64
	period core.Period
}

// Store keeps the latest exported summary per plan and month. It backs
// development setups and tests where no spreadsheet is configured.
type Store struct {
	mu      sync.Mutex
	exports map[exportKey]core.MonthSummary
	count   int
}

func New() *Store {
	return &Store{exports: make(map[exportKey]core.MonthSummary)}
}

// ExportMonth stores the summary, replacing an earlier export of the same month.
func (s *Store) ExportMonth(_ context.Context, sum core.MonthSummary) (string, error) {
	if sum.Period.IsZero() {
		return "", core.Invalid("period", "summary has no period")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports[exportKey{sum.PlanID, sum.Period}] = sum
	s.count++
	return fmt.Sprintf("mem:%d:%s", sum.PlanID, sum.Period), nil
}

// Exported returns the last summary exported for the plan's month.
func (s *Store) Exported(planID int64, p core.Period) (core.MonthSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.exports[exportKey{planID, p}]
	return sum, ok
}

// Count returns how many exports were written, including replacements.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
