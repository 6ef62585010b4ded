package google

import (
	"fmt"
	"strings"

	"budgeting/internal/core"
)

var categoryHeader = []any{"Main category", "Category", "Assigned", "Spent", "Available"}

// monthTabName returns "<year>-<MM> <base>", the tab holding one month.
func monthTabName(base string, p core.Period) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return p.String()
	}
	return fmt.Sprintf("%s %s", p.String(), base)
}

// summaryRows lays out a month summary as sheet rows: a totals block, one
// line per main category and then every category under its main category.
// Amounts are written as numbers so the sheet can sum them.
func summaryRows(s core.MonthSummary) [][]any {
	rows := [][]any{
		{"Plan", s.PlanName},
		{"Month", s.Period.String()},
		{},
		{"Monthly income", s.MonthlyIncome.Units()},
		{"Additional income", s.AdditionalIncome.Units()},
		{"Rollover", s.Rollover.Units()},
		{"Money to assign", s.MoneyToAssign.Units()},
		{"Assigned", s.TotalAssigned.Units()},
		{"Spent", s.TotalSpent.Units()},
		{"Remaining to assign", s.MoneyRemainingToAssign.Units()},
		{},
		{"Main category", "Ratio %", "Ceiling", "Assigned", "Spent", "Available"},
	}
	for _, g := range s.Groups {
		ratio, _ := g.Ratio.Float64()
		rows = append(rows, []any{
			g.Main.Label(), ratio, g.Ceiling.Units(), g.Assigned.Units(), g.Spent.Units(), g.Available.Units(),
		})
	}

	rows = append(rows, []any{}, categoryHeader)
	for _, g := range s.Groups {
		for _, l := range g.Categories {
			rows = append(rows, []any{
				g.Main.Label(), l.Name, l.Assigned.Units(), l.Spent.Units(), l.Available.Units(),
			})
		}
	}
	return rows
}

// rowsRange returns the A1 range covered by rows written from A1.
func rowsRange(tab string, rows [][]any) string {
	width := 1
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return fmt.Sprintf("'%s'!A1:%c%d", tab, 'A'+rune(width-1), len(rows))
}
