package sheets

import (
	"context"

	"budgeting/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryExporter writes a month summary to an external sheet. Exporting
	// the same month twice replaces the previous copy.
	SummaryExporter interface {
		ExportMonth(ctx context.Context, s core.MonthSummary) (ref string, err error)
	}
)
