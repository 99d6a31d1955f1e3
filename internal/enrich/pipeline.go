// Package enrich turns a fully-tagged transaction table into the
// analysis-ready enriched table: canonical sort, classification flags, four
// ordered cumulative balances, derived label columns, and synthetic tick
// rows for charting continuity. The pipeline is pure: same input, same
// configuration, byte-identical output.
package enrich

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/schema"
	"github.com/ledgerline/ledgerline/internal/tagging"
)

// Pipeline holds the configuration slice the enrichment steps need.
type Pipeline struct {
	rules     []config.PresetRule
	analysis  config.AnalysisConfig
	delimiter string
}

// New builds a Pipeline from the loaded configuration.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		rules:     cfg.Tagging.PresetRules,
		analysis:  cfg.Reports,
		delimiter: cfg.General.LabelDelimiter,
	}
}

// Run executes the full enrichment, in this exact order:
//
//  1. preset rules assigned in-memory to still-untagged rows
//  2. synthetic edge/sentinel tick injection
//  3. is_external / is_breakdown classification
//  4. canonical sort (date, tag, subtag, amount, description, fingerprint)
//  5. cumulative balances in that sort order
//  6. derived month / tags / account_source columns
//  7. enriched-schema check
//
// Classification precedes balances because the inexternal balance partitions
// on the classification flag. With untagged rows present and strict mode on
// (the default), Run fails listing every offending row.
func (p *Pipeline) Run(rows []model.TaggedTransaction) (*Dataset, error) {
	work := make([]model.TaggedTransaction, len(rows))
	copy(work, rows)

	assigned, err := tagging.AssignPresets(work, p.rules)
	if err != nil {
		return nil, err
	}
	for i := range work {
		if pair, ok := assigned[work[i].Fingerprint]; ok && !work[i].Tagged() {
			pr := pair
			work[i].Tags = &pr
		}
	}

	if !p.analysis.AllowUntagged {
		if err := tagging.ValidateTagged(work); err != nil {
			return nil, err
		}
	}

	enriched := make([]model.EnrichedTransaction, len(work))
	for i, row := range work {
		enriched[i] = model.EnrichedTransaction{TaggedTransaction: row}
	}

	// Tick bounds and tag sets come from the real rows only.
	edges := edgeTicks(enriched, p.analysis.EdgeTickMin, p.analysis.EdgeTickMax)
	var sentinels []model.EnrichedTransaction
	if p.analysis.SentinelTicks {
		sentinels = sentinelTicks(enriched)
	}
	enriched = append(enriched, edges...)
	enriched = append(enriched, sentinels...)

	externalPred, err := p.analysis.ExternalFilter.Compile()
	if err != nil {
		return nil, fmt.Errorf("external filter: %w", err)
	}
	excludePred, err := p.analysis.BreakdownExclude.Compile()
	if err != nil {
		return nil, fmt.Errorf("breakdown exclusion filter: %w", err)
	}
	for i := range enriched {
		enriched[i].IsExternal = externalPred(enriched[i].TaggedTransaction)
		enriched[i].IsBreakdown = !excludePred(enriched[i].TaggedTransaction)
	}

	sortCanonical(enriched)
	computeBalances(enriched)

	for i := range enriched {
		e := &enriched[i]
		e.Month = e.Date.Format(model.MonthFormat)
		if e.Tags != nil {
			e.TagLabel = e.Tags.Label(p.delimiter)
		}
		e.AccountSource = e.Account + p.delimiter + e.Source
	}

	if err := schema.Validate(Columns, schema.Enriched); err != nil {
		return nil, fmt.Errorf("enriched output: %w", err)
	}
	return &Dataset{rows: enriched}, nil
}

// sortCanonical establishes the total order every cumulative sum depends on.
func sortCanonical(rows []model.EnrichedTransaction) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Tag() != b.Tag() {
			return a.Tag() < b.Tag()
		}
		if a.Subtag() != b.Subtag() {
			return a.Subtag() < b.Subtag()
		}
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c < 0
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		return a.Fingerprint < b.Fingerprint
	})
}

// computeBalances fills the four running sums. Each partition accumulates as
// encountered in the canonical order, never re-sorted per partition.
func computeBalances(rows []model.EnrichedTransaction) {
	total := decimal.Zero
	byExternal := make(map[bool]decimal.Decimal)
	byAccount := make(map[string]decimal.Decimal)
	byAccountSource := make(map[accountSource]decimal.Decimal)

	for i := range rows {
		row := &rows[i]
		amount := row.Amount

		total = total.Add(amount)
		row.BalanceTotal = total

		ext := byExternal[row.IsExternal].Add(amount)
		byExternal[row.IsExternal] = ext
		row.BalanceInexternal = ext

		acct := byAccount[row.Account].Add(amount)
		byAccount[row.Account] = acct
		row.BalanceAccount = acct

		key := accountSource{row.Account, row.Source}
		src := byAccountSource[key].Add(amount)
		byAccountSource[key] = src
		row.BalanceSource = src
	}
}
