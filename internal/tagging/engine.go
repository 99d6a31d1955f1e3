// Package tagging joins raw transactions against the tag store and drives
// tag assignment: declarative preset rules, description-based guessing, and
// the interactive loop. The joined view is recomputed after every mutation;
// correctness over performance.
package tagging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/fingerprint"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/tagstore"
)

// unknownTag is the guess of last resort.
var unknownTag = model.TagPair{Tag: "unknown", Subtag: ""}

// Join computes each transaction's fingerprint and left-joins it against the
// tag entries. The result is sorted by date (stable, preserving the ledger's
// canonical order within a day).
func Join(txns []model.Transaction, entries []tagstore.Entry) []model.TaggedTransaction {
	idx := tagstore.Index(entries)

	rows := make([]model.TaggedTransaction, len(txns))
	for i, txn := range txns {
		hash := fingerprint.Transaction(txn)
		row := model.TaggedTransaction{Transaction: txn, Fingerprint: hash}
		if pair, ok := idx[hash]; ok {
			p := pair
			row.Tags = &p
		}
		rows[i] = row
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}

// Engine holds the joined view and persists tag decisions one at a time.
type Engine struct {
	store    *tagstore.Store
	txns     []model.Transaction
	rows     []model.TaggedTransaction
	cfg      config.TaggingConfig
	auditLog string
}

// NewEngine loads the tag store and builds the joined view.
func NewEngine(store *tagstore.Store, txns []model.Transaction, cfg config.TaggingConfig, auditLog string) (*Engine, error) {
	e := &Engine{store: store, txns: txns, cfg: cfg, auditLog: auditLog}
	if err := e.reload(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) reload() error {
	entries, err := e.store.Load()
	if err != nil {
		return err
	}
	e.rows = Join(e.txns, entries)
	return nil
}

// Rows returns the current joined view.
func (e *Engine) Rows() []model.TaggedTransaction { return e.rows }

// NextUntagged returns the lowest-index untagged row not in the exclusion
// set. The exclusion set implements "skip" without touching persisted state.
func (e *Engine) NextUntagged(skip map[int]bool) (int, bool) {
	for i, row := range e.rows {
		if !row.Tagged() && !skip[i] {
			return i, true
		}
	}
	return 0, false
}

// Apply persists one tag decision: upsert into the store, append to the
// audit log, and rebuild the joined view. Never batched, so every accepted
// tag survives a later crash.
func (e *Engine) Apply(index int, pair model.TagPair) error {
	return e.apply(index, pair, "tag")
}

func (e *Engine) apply(index int, pair model.TagPair, action string) error {
	if index < 0 || index >= len(e.rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	row := e.rows[index]

	_, err := e.store.Upsert([]tagstore.Entry{{
		Tag:    pair.Tag,
		Subtag: pair.Subtag,
		Hash:   row.Fingerprint,
	}})
	if err != nil {
		return err
	}

	if e.auditLog != "" {
		entry := audit.Entry{
			Timestamp: time.Now(),
			Action:    action,
			Hash:      row.Fingerprint,
			Tag:       pair.Tag,
			Subtag:    pair.Subtag,
		}
		if err := audit.Append(e.auditLog, []audit.Entry{entry}); err != nil {
			return err
		}
	}

	return e.reload()
}

// AssignPresets evaluates preset rules against every untagged row and
// returns the resulting assignments keyed by fingerprint. Rules are applied
// in reverse list order so that the FIRST listed rule wins when several
// match the same transaction. Tagged rows are never reassigned.
func AssignPresets(rows []model.TaggedTransaction, rules []config.PresetRule) (map[uint64]model.TagPair, error) {
	assigned := make(map[uint64]model.TagPair)
	for i := len(rules) - 1; i >= 0; i-- {
		rule := rules[i]
		pred, err := rule.Filter.Compile()
		if err != nil {
			return nil, fmt.Errorf("preset rule %d: %w", i+1, err)
		}
		for _, row := range rows {
			if row.Tagged() || !pred(row) {
				continue
			}
			assigned[row.Fingerprint] = model.TagPair{Tag: rule.Tag, Subtag: rule.Subtag}
		}
	}
	return assigned, nil
}

// ApplyPresets assigns configured preset rules to every still-untagged row
// and persists the result. Returns the number of rows tagged.
func (e *Engine) ApplyPresets() (int, error) {
	if len(e.cfg.PresetRules) == 0 {
		return 0, nil
	}

	assigned, err := AssignPresets(e.rows, e.cfg.PresetRules)
	if err != nil {
		return 0, err
	}
	if len(assigned) == 0 {
		return 0, nil
	}

	entries := make([]tagstore.Entry, 0, len(assigned))
	logEntries := make([]audit.Entry, 0, len(assigned))
	now := time.Now()
	for hash, pair := range assigned {
		entries = append(entries, tagstore.Entry{Tag: pair.Tag, Subtag: pair.Subtag, Hash: hash})
		logEntries = append(logEntries, audit.Entry{
			Timestamp: now,
			Action:    "preset",
			Hash:      hash,
			Tag:       pair.Tag,
			Subtag:    pair.Subtag,
		})
	}
	if _, err := e.store.Upsert(entries); err != nil {
		return 0, err
	}
	if e.auditLog != "" {
		if err := audit.Append(e.auditLog, logEntries); err != nil {
			return 0, err
		}
	}
	if err := e.reload(); err != nil {
		return 0, err
	}
	return len(assigned), nil
}

// Guess suggests a tag pair for the row at index:
//  1. the pair of the most recently dated tagged row whose description
//     exactly matches the target's,
//  2. with fuzzy guessing enabled, the nearest description within the
//     configured levenshtein distance,
//  3. the configured default pair,
//  4. the pair covering the largest number of DISTINCT descriptions
//     (plurality over descriptions, not occurrences; first seen wins ties),
//  5. ("unknown", "").
func (e *Engine) Guess(index int) (model.TagPair, error) {
	if index < 0 || index >= len(e.rows) {
		return model.TagPair{}, fmt.Errorf("row index %d out of range", index)
	}
	target := e.rows[index]
	if target.Account == "" && target.Description == "" {
		return model.TagPair{}, fmt.Errorf(
			"row %d has empty natural-key fields (likely a blank line in a source CSV)", index)
	}

	byDateDesc := make([]model.TaggedTransaction, len(e.rows))
	copy(byDateDesc, e.rows)
	sort.SliceStable(byDateDesc, func(i, j int) bool {
		return byDateDesc[i].Date.After(byDateDesc[j].Date)
	})

	var pairOrder []model.TagPair
	descriptions := make(map[model.TagPair]map[string]bool)
	for _, row := range byDateDesc {
		if !row.Tagged() {
			continue
		}
		pair := *row.Tags
		if descriptions[pair] == nil {
			descriptions[pair] = make(map[string]bool)
			pairOrder = append(pairOrder, pair)
		}
		descriptions[pair][row.Description] = true
		if row.Description == target.Description {
			return pair, nil
		}
	}

	if e.cfg.FuzzyGuessDistance > 0 {
		if pair, ok := e.fuzzyGuess(target, byDateDesc); ok {
			return pair, nil
		}
	}

	if e.cfg.DefaultTag != "" || e.cfg.DefaultSubtag != "" {
		return model.TagPair{Tag: e.cfg.DefaultTag, Subtag: e.cfg.DefaultSubtag}, nil
	}

	if len(pairOrder) == 0 {
		return unknownTag, nil
	}

	best := pairOrder[0]
	for _, pair := range pairOrder[1:] {
		if len(descriptions[pair]) > len(descriptions[best]) {
			best = pair
		}
	}
	return best, nil
}

func (e *Engine) fuzzyGuess(target model.TaggedTransaction, byDateDesc []model.TaggedTransaction) (model.TagPair, bool) {
	bestDistance := e.cfg.FuzzyGuessDistance + 1
	var best model.TagPair
	for _, row := range byDateDesc {
		if !row.Tagged() {
			continue
		}
		d := levenshtein.ComputeDistance(row.Description, target.Description)
		if d < bestDistance {
			bestDistance = d
			best = *row.Tags
		}
	}
	return best, bestDistance <= e.cfg.FuzzyGuessDistance
}

// TagCount is one line of the tag summary.
type TagCount struct {
	Pair  model.TagPair
	Count int
}

// Summary returns per-pair row counts sorted by (tag, subtag), plus the
// number of untagged rows.
func (e *Engine) Summary() (counts []TagCount, untagged int) {
	byPair := make(map[model.TagPair]int)
	for _, row := range e.rows {
		if !row.Tagged() {
			untagged++
			continue
		}
		byPair[*row.Tags]++
	}
	for pair, n := range byPair {
		counts = append(counts, TagCount{Pair: pair, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		a, b := counts[i].Pair, counts[j].Pair
		if a.Tag != b.Tag {
			return a.Tag < b.Tag
		}
		return a.Subtag < b.Subtag
	})
	return counts, untagged
}

// UntaggedError reports every untagged row, not just the first.
type UntaggedError struct {
	Rows []model.TaggedTransaction
}

func (e *UntaggedError) Error() string {
	lines := make([]string, len(e.Rows))
	for i, row := range e.Rows {
		lines[i] = fmt.Sprintf("%s %s %s %q",
			row.Date.Format(model.DateFormat), row.Account, row.Amount.StringFixed(2), row.Description)
	}
	return fmt.Sprintf("%d untagged transactions:\n  %s", len(e.Rows), strings.Join(lines, "\n  "))
}

// ValidateTagged fails when any row has no tag assigned. Strict mode gates
// enrichment and reporting on this check.
func ValidateTagged(rows []model.TaggedTransaction) error {
	var untagged []model.TaggedTransaction
	for _, row := range rows {
		if !row.Tagged() {
			untagged = append(untagged, row)
		}
	}
	if len(untagged) > 0 {
		return &UntaggedError{Rows: untagged}
	}
	return nil
}
