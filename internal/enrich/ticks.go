package enrich

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/fingerprint"
	"github.com/ledgerline/ledgerline/internal/model"
)

const (
	edgeTickTag         = "other"
	edgeTickSubtag      = "auto-tick"
	edgeTickDescription = "auto-generated tick"
	sentinelDescription = "auto-generated sentinel tick"
)

type accountSource struct {
	account string
	source  string
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func lastOfMonth(t time.Time) time.Time {
	return firstOfMonth(t).AddDate(0, 1, -1)
}

func newTick(key accountSource, date time.Time, pair model.TagPair, description string) model.EnrichedTransaction {
	txn := model.Transaction{
		Account:     key.account,
		Source:      key.source,
		Date:        date,
		Amount:      decimal.Zero,
		Description: description,
	}
	return model.EnrichedTransaction{
		TaggedTransaction: model.TaggedTransaction{
			Transaction: txn,
			Fingerprint: fingerprint.Transaction(txn),
			Tags:        &pair,
		},
	}
}

// edgeTicks injects zero-amount rows before the earliest and/or after the
// latest transaction of the whole ledger, anchoring chart axes past the data
// range. The edge dates come from the GLOBAL date bounds, and every
// (account, source) pair gets a tick at those shared dates, so all chart
// lines start and end on the same axis boundary. The pad can be capped to
// stay within the boundary month.
func edgeTicks(rows []model.EnrichedTransaction, minCfg, maxCfg config.EdgeTickConfig) []model.EnrichedTransaction {
	if len(rows) == 0 || (!minCfg.Enable && !maxCfg.Enable) {
		return nil
	}

	min, max := rows[0].Date, rows[0].Date
	seen := make(map[accountSource]bool)
	var keys []accountSource
	for _, row := range rows {
		key := accountSource{row.Account, row.Source}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		if row.Date.Before(min) {
			min = row.Date
		}
		if row.Date.After(max) {
			max = row.Date
		}
	}

	pair := model.TagPair{Tag: edgeTickTag, Subtag: edgeTickSubtag}
	var ticks []model.EnrichedTransaction
	emit := func(date time.Time) {
		for _, key := range keys {
			tick := newTick(key, date, pair, edgeTickDescription)
			tick.IsEdgeTick = true
			ticks = append(ticks, tick)
		}
	}

	if minCfg.Enable {
		date := min.AddDate(0, 0, -minCfg.PadDays)
		if minCfg.CapSameMonth && date.Before(firstOfMonth(min)) {
			date = firstOfMonth(min)
		}
		emit(date)
	}
	if maxCfg.Enable {
		date := max.AddDate(0, 0, maxCfg.PadDays)
		if maxCfg.CapSameMonth && date.After(lastOfMonth(max)) {
			date = lastOfMonth(max)
		}
		emit(date)
	}
	return ticks
}

// sentinelTicks injects a zero-amount first-of-month row for every
// (tag, subtag) x month-in-range x account x source combination, so grouped
// and rolling computations never silently skip a quiet month. Accounts and
// sources cross-join independently: an account gets sentinels even for
// sources it was never observed with.
func sentinelTicks(rows []model.EnrichedTransaction) []model.EnrichedTransaction {
	if len(rows) == 0 {
		return nil
	}

	pairSet := make(map[model.TagPair]bool)
	accountSet := make(map[string]bool)
	sourceSet := make(map[string]bool)
	min, max := rows[0].Date, rows[0].Date
	for _, row := range rows {
		if row.Tags != nil {
			pairSet[*row.Tags] = true
		}
		accountSet[row.Account] = true
		sourceSet[row.Source] = true
		if row.Date.Before(min) {
			min = row.Date
		}
		if row.Date.After(max) {
			max = row.Date
		}
	}

	pairs := make([]model.TagPair, 0, len(pairSet))
	for p := range pairSet {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Tag != pairs[j].Tag {
			return pairs[i].Tag < pairs[j].Tag
		}
		return pairs[i].Subtag < pairs[j].Subtag
	})

	accounts := make([]string, 0, len(accountSet))
	for a := range accountSet {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var ticks []model.EnrichedTransaction
	for month := firstOfMonth(min); !month.After(max); month = month.AddDate(0, 1, 0) {
		for _, pair := range pairs {
			for _, account := range accounts {
				for _, source := range sources {
					tick := newTick(accountSource{account, source}, month, pair, sentinelDescription)
					tick.IsSentinelTick = true
					ticks = append(ticks, tick)
				}
			}
		}
	}
	return ticks
}
