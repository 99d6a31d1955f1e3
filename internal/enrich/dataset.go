package enrich

import (
	"sort"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Dataset wraps the enriched table behind accessors that default to real
// transactions, so aggregation sites cannot absorb synthetic tick rows by
// accident.
type Dataset struct {
	rows []model.EnrichedTransaction
}

// All returns every row including synthetic ticks, in canonical order.
// Chart-oriented consumers that need the axis anchors use this; everything
// that sums should go through Real or the filtered accessors.
func (d *Dataset) All() []model.EnrichedTransaction { return d.rows }

func (d *Dataset) filtered(keep func(model.EnrichedTransaction) bool) []model.EnrichedTransaction {
	var out []model.EnrichedTransaction
	for _, row := range d.rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// Real returns only parsed transactions, no ticks.
func (d *Dataset) Real() []model.EnrichedTransaction {
	return d.filtered(func(row model.EnrichedTransaction) bool {
		return !row.Synthetic()
	})
}

// Breakdown returns real, non-external rows eligible for category
// breakdowns. External transfers never count toward spending or income.
func (d *Dataset) Breakdown() []model.EnrichedTransaction {
	return d.filtered(func(row model.EnrichedTransaction) bool {
		return !row.Synthetic() && row.IsBreakdown && !row.IsExternal
	})
}

// ExcludeExternal returns real rows that stay within the tracked accounts.
func (d *Dataset) ExcludeExternal() []model.EnrichedTransaction {
	return d.filtered(func(row model.EnrichedTransaction) bool {
		return !row.Synthetic() && !row.IsExternal
	})
}

// Incomes returns breakdown-eligible rows with positive amounts.
func (d *Dataset) Incomes() []model.EnrichedTransaction {
	return d.filtered(func(row model.EnrichedTransaction) bool {
		return !row.Synthetic() && row.IsBreakdown && !row.IsExternal && row.Amount.IsPositive()
	})
}

// Expenses returns breakdown-eligible rows with negative amounts.
func (d *Dataset) Expenses() []model.EnrichedTransaction {
	return d.filtered(func(row model.EnrichedTransaction) bool {
		return !row.Synthetic() && row.IsBreakdown && !row.IsExternal && row.Amount.IsNegative()
	})
}

// Months returns the distinct month buckets across all rows in ascending
// order. Sentinel ticks extend this to every month in the data range.
func (d *Dataset) Months() []string {
	seen := make(map[string]bool)
	var months []string
	for _, row := range d.rows {
		if !seen[row.Month] {
			seen[row.Month] = true
			months = append(months, row.Month)
		}
	}
	sort.Strings(months)
	return months
}
