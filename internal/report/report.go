// Package report builds the analysis tables: category breakdowns, the
// monthly cash-flow matrix, rolling averages over monthly net, and running
// balances. Every builder consumes the enriched dataset through its
// real-rows accessors, so synthetic tick rows never leak into a sum.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/enrich"
	"github.com/ledgerline/ledgerline/internal/model"
)

// Table is a rendered-ready report: a title, a header row, and body rows.
// The last body row is a totals row where the table has one.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Builder derives report tables from enriched datasets.
type Builder struct {
	rolling map[string][]float64
}

// New creates a Builder from the loaded configuration.
func New(cfg *config.Config) *Builder {
	return &Builder{rolling: cfg.Reports.RollingAverages}
}

// monthRange expands a sparse month list to the full contiguous range, so a
// quiet month shows a zero column instead of disappearing.
func monthRange(months []string) []string {
	if len(months) == 0 {
		return nil
	}
	sorted := append([]string{}, months...)
	sort.Strings(sorted)

	first, err := time.Parse(model.MonthFormat, sorted[0])
	if err != nil {
		return sorted
	}
	last, err := time.Parse(model.MonthFormat, sorted[len(sorted)-1])
	if err != nil {
		return sorted
	}

	var out []string
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, m.Format(model.MonthFormat))
	}
	return out
}

func monthsOf(rows []model.EnrichedTransaction) []string {
	seen := make(map[string]bool)
	var months []string
	for _, row := range rows {
		if !seen[row.Month] {
			seen[row.Month] = true
			months = append(months, row.Month)
		}
	}
	return monthRange(months)
}

// breakdown pivots rows into label x month sums with a trailing total
// column and a totals row. With negate set, amounts flip sign so expense
// tables show positive magnitudes.
func breakdown(title string, rows []model.EnrichedTransaction, negate bool) Table {
	months := monthsOf(rows)

	sums := make(map[string]map[string]decimal.Decimal)
	var labels []string
	for _, row := range rows {
		amount := row.Amount
		if negate {
			amount = amount.Neg()
		}
		label := row.TagLabel
		if sums[label] == nil {
			sums[label] = make(map[string]decimal.Decimal)
			labels = append(labels, label)
		}
		sums[label][row.Month] = sums[label][row.Month].Add(amount)
	}
	sort.Strings(labels)

	table := Table{Title: title, Headers: append(append([]string{"tags"}, months...), "total")}
	monthTotals := make(map[string]decimal.Decimal)
	grand := decimal.Zero

	for _, label := range labels {
		row := []string{label}
		rowTotal := decimal.Zero
		for _, month := range months {
			v := sums[label][month]
			row = append(row, v.StringFixed(2))
			rowTotal = rowTotal.Add(v)
			monthTotals[month] = monthTotals[month].Add(v)
		}
		grand = grand.Add(rowTotal)
		table.Rows = append(table.Rows, append(row, rowTotal.StringFixed(2)))
	}

	totals := []string{"total"}
	for _, month := range months {
		totals = append(totals, monthTotals[month].StringFixed(2))
	}
	table.Rows = append(table.Rows, append(totals, grand.StringFixed(2)))
	return table
}

// ExpensesBreakdown pivots breakdown-eligible outflows by tag label and
// month, negated so spending reads as positive magnitudes.
func (b *Builder) ExpensesBreakdown(ds *enrich.Dataset) Table {
	return breakdown("Expenses", ds.Expenses(), true)
}

// IncomesBreakdown pivots breakdown-eligible inflows by tag label and month.
func (b *Builder) IncomesBreakdown(ds *enrich.Dataset) Table {
	return breakdown("Incomes", ds.Incomes(), false)
}

// monthlyNet sums breakdown-eligible amounts per month over the contiguous
// month range.
func monthlyNet(ds *enrich.Dataset) (months []string, net map[string]decimal.Decimal) {
	rows := ds.Breakdown()
	months = monthsOf(rows)
	net = make(map[string]decimal.Decimal)
	for _, row := range rows {
		net[row.Month] = net[row.Month].Add(row.Amount)
	}
	return months, net
}

// CashFlow builds the month-by-month income/expense/net matrix with a
// running cumulative net and a totals row.
func (b *Builder) CashFlow(ds *enrich.Dataset) Table {
	rows := ds.Breakdown()
	months := monthsOf(rows)

	incomes := make(map[string]decimal.Decimal)
	expenses := make(map[string]decimal.Decimal)
	for _, row := range rows {
		if row.Amount.IsPositive() {
			incomes[row.Month] = incomes[row.Month].Add(row.Amount)
		} else {
			expenses[row.Month] = expenses[row.Month].Add(row.Amount)
		}
	}

	table := Table{
		Title:   "Cash flow",
		Headers: []string{"month", "income", "expenses", "net", "cumulative"},
	}
	cumulative := decimal.Zero
	totalIn, totalOut := decimal.Zero, decimal.Zero
	for _, month := range months {
		in, out := incomes[month], expenses[month]
		net := in.Add(out)
		cumulative = cumulative.Add(net)
		totalIn = totalIn.Add(in)
		totalOut = totalOut.Add(out)
		table.Rows = append(table.Rows, []string{
			month,
			in.StringFixed(2),
			out.StringFixed(2),
			net.StringFixed(2),
			cumulative.StringFixed(2),
		})
	}
	table.Rows = append(table.Rows, []string{
		"total",
		totalIn.StringFixed(2),
		totalOut.StringFixed(2),
		totalIn.Add(totalOut).StringFixed(2),
		cumulative.StringFixed(2),
	})
	return table
}

// RollingAverages computes weighted trailing averages of monthly net for
// each configured window. Weights are listed oldest-first; months without a
// full window render empty.
func (b *Builder) RollingAverages(ds *enrich.Dataset) Table {
	months, net := monthlyNet(ds)

	labels := make([]string, 0, len(b.rolling))
	for label := range b.rolling {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	table := Table{Title: "Rolling averages", Headers: append([]string{"month"}, labels...)}
	for i, month := range months {
		row := []string{month}
		for _, label := range labels {
			weights := b.rolling[label]
			if i+1 < len(weights) {
				row = append(row, "")
				continue
			}
			row = append(row, weightedAverage(months[i+1-len(weights):i+1], net, weights).StringFixed(2))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func weightedAverage(window []string, net map[string]decimal.Decimal, weights []float64) decimal.Decimal {
	sum := decimal.Zero
	weightSum := decimal.Zero
	for i, month := range window {
		w := decimal.NewFromFloat(weights[i])
		sum = sum.Add(net[month].Mul(w))
		weightSum = weightSum.Add(w)
	}
	if weightSum.IsZero() {
		return decimal.Zero
	}
	return sum.Div(weightSum).Round(2)
}

// Balances reports the final running balance of each (account, source)
// partition and the overall total.
func (b *Builder) Balances(ds *enrich.Dataset) Table {
	rows := ds.Real()

	last := make(map[string]model.EnrichedTransaction)
	var order []string
	for _, row := range rows {
		if _, ok := last[row.AccountSource]; !ok {
			order = append(order, row.AccountSource)
		}
		last[row.AccountSource] = row
	}
	sort.Strings(order)

	table := Table{Title: "Balances", Headers: []string{"account_source", "balance"}}
	for _, key := range order {
		table.Rows = append(table.Rows, []string{key, last[key].BalanceSource.StringFixed(2)})
	}
	if len(rows) > 0 {
		table.Rows = append(table.Rows, []string{
			"total", rows[len(rows)-1].BalanceTotal.StringFixed(2),
		})
	}
	return table
}
