package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical on-disk date layout for all CSVs.
const DateFormat = "2006-01-02"

// MonthFormat is the layout of the derived month bucket column.
const MonthFormat = "2006-01"

// Transaction is one parsed bank-export row (the raw schema).
// Rows are immutable once written to a per-account CSV; identity for
// tagging purposes is the fingerprint, not the row itself.
type Transaction struct {
	Account     string
	Source      string // sub-ledger within the account, e.g. "checking"/"card"
	Date        time.Time
	Amount      decimal.Decimal // negative = outflow
	Description string
}

// TaggedTransaction is a raw transaction joined against the tag store.
// Tags is nil when no tag entry exists for the fingerprint.
type TaggedTransaction struct {
	Transaction
	Fingerprint uint64
	Tags        *TagPair
}

// Tagged reports whether a tag has been assigned.
func (t TaggedTransaction) Tagged() bool { return t.Tags != nil }

// Tag returns the assigned tag, or "" when untagged.
func (t TaggedTransaction) Tag() string {
	if t.Tags == nil {
		return ""
	}
	return t.Tags.Tag
}

// Subtag returns the assigned subtag, or "" when untagged.
func (t TaggedTransaction) Subtag() string {
	if t.Tags == nil {
		return ""
	}
	return t.Tags.Subtag
}

// EnrichedTransaction carries every derived column of the enriched schema.
// The four balances are ordered cumulative sums; the boolean flags classify
// the row for reporting. Tick rows are synthetic and must be excluded from
// aggregation unless explicitly requested.
type EnrichedTransaction struct {
	TaggedTransaction
	Month          string // "YYYY-MM"
	TagLabel       string // tag + delimiter + subtag
	AccountSource  string // account + delimiter + source
	IsExternal     bool
	IsBreakdown    bool
	IsEdgeTick     bool
	IsSentinelTick bool
	BalanceTotal      decimal.Decimal
	BalanceInexternal decimal.Decimal
	BalanceAccount    decimal.Decimal
	BalanceSource     decimal.Decimal
}

// Synthetic reports whether the row was injected for charting continuity
// rather than parsed from a bank export.
func (e EnrichedTransaction) Synthetic() bool {
	return e.IsEdgeTick || e.IsSentinelTick
}
