package tagging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/filter"
	"github.com/ledgerline/ledgerline/internal/fingerprint"
	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/tagstore"
)

func txn(date, account, amount, desc string) model.Transaction {
	d, err := time.Parse(model.DateFormat, date)
	if err != nil {
		panic(err)
	}
	return model.Transaction{
		Account:     account,
		Source:      "debit",
		Date:        d,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
	}
}

func newTestEngine(t *testing.T, txns []model.Transaction, cfg config.TaggingConfig) *Engine {
	t.Helper()
	store := tagstore.New(filepath.Join(t.TempDir(), "tags.csv"))
	e, err := NewEngine(store, txns, cfg, "")
	require.NoError(t, err)
	return e
}

func TestJoin(t *testing.T) {
	txns := []model.Transaction{
		txn("2024-01-07", "chk", "-10.00", "Coffee Shop"),
		txn("2024-01-05", "chk", "-42.50", "Grocer"),
	}
	entries := []tagstore.Entry{
		{Tag: "Food", Subtag: "Groceries", Hash: fingerprint.Transaction(txns[1])},
	}

	rows := Join(txns, entries)
	require.Len(t, rows, 2)

	assert.Equal(t, "Grocer", rows[0].Description, "joined view sorted by date")
	assert.True(t, rows[0].Tagged())
	assert.Equal(t, "Food", rows[0].Tag())
	assert.False(t, rows[1].Tagged())
}

func TestNextUntagged(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-05", "chk", "-10.00", "a"),
		txn("2024-01-06", "chk", "-10.00", "b"),
	}, config.TaggingConfig{})

	index, ok := e.NextUntagged(nil)
	require.True(t, ok)
	assert.Equal(t, 0, index)

	index, ok = e.NextUntagged(map[int]bool{0: true})
	require.True(t, ok)
	assert.Equal(t, 1, index, "skipped rows are passed over")

	_, ok = e.NextUntagged(map[int]bool{0: true, 1: true})
	assert.False(t, ok)
}

func TestApplyPersists(t *testing.T) {
	dir := t.TempDir()
	store := tagstore.New(filepath.Join(dir, "tags.csv"))
	e, err := NewEngine(store, []model.Transaction{
		txn("2024-01-05", "chk", "-10.00", "Coffee Shop"),
	}, config.TaggingConfig{}, filepath.Join(dir, "logs", "tag-log.csv"))
	require.NoError(t, err)

	require.NoError(t, e.Apply(0, model.TagPair{Tag: "Food", Subtag: "Coffee"}))

	assert.True(t, e.Rows()[0].Tagged(), "joined view refreshed after apply")

	entries, err := store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 1, "decision written through to disk immediately")
	assert.Equal(t, "Food", entries[0].Tag)
}

func TestGuessExactMatchMostRecentWins(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-01", "chk", "-10.00", "Coffee Shop"),
		txn("2024-02-01", "chk", "-11.00", "Coffee Shop"),
		txn("2024-03-01", "chk", "-12.00", "Coffee Shop"),
	}, config.TaggingConfig{})

	require.NoError(t, e.Apply(0, model.TagPair{Tag: "Food", Subtag: "Old"}))
	require.NoError(t, e.Apply(1, model.TagPair{Tag: "Food", Subtag: "Recent"}))

	guess, err := e.Guess(2)
	require.NoError(t, err)
	assert.Equal(t, model.TagPair{Tag: "Food", Subtag: "Recent"}, guess,
		"the most recently dated exact match wins")
}

func TestGuessDefaultBeatsPlurality(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-01", "chk", "-10.00", "a"),
		txn("2024-01-02", "chk", "-10.00", "b"),
		txn("2024-01-03", "chk", "-10.00", "never seen"),
	}, config.TaggingConfig{DefaultTag: "misc"})

	require.NoError(t, e.Apply(0, model.TagPair{Tag: "Food"}))
	require.NoError(t, e.Apply(1, model.TagPair{Tag: "Food"}))

	guess, err := e.Guess(2)
	require.NoError(t, err)
	assert.Equal(t, model.TagPair{Tag: "misc"}, guess)
}

func TestGuessPluralityByDistinctDescriptions(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-01", "chk", "-10.00", "same grocer"),
		txn("2024-01-02", "chk", "-11.00", "same grocer"),
		txn("2024-01-03", "chk", "-12.00", "same grocer"),
		txn("2024-01-04", "chk", "-5.00", "bus"),
		txn("2024-01-05", "chk", "-6.00", "train"),
		txn("2024-01-06", "chk", "-7.00", "never seen"),
	}, config.TaggingConfig{})

	food := model.TagPair{Tag: "Food"}
	transit := model.TagPair{Tag: "Transit"}
	require.NoError(t, e.Apply(0, food))
	require.NoError(t, e.Apply(1, food))
	require.NoError(t, e.Apply(2, food))
	require.NoError(t, e.Apply(3, transit))
	require.NoError(t, e.Apply(4, transit))

	guess, err := e.Guess(5)
	require.NoError(t, err)
	assert.Equal(t, transit, guess,
		"plurality counts distinct descriptions, not row occurrences")
}

func TestGuessNoTaggedRows(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-01", "chk", "-10.00", "anything"),
	}, config.TaggingConfig{})

	guess, err := e.Guess(0)
	require.NoError(t, err)
	assert.Equal(t, model.TagPair{Tag: "unknown"}, guess)
}

func TestGuessFuzzy(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-01", "chk", "-10.00", "COFFEE SHOP #12"),
		txn("2024-01-02", "chk", "-11.00", "COFFEE SHOP #47"),
	}, config.TaggingConfig{FuzzyGuessDistance: 3})

	require.NoError(t, e.Apply(0, model.TagPair{Tag: "Food", Subtag: "Coffee"}))

	guess, err := e.Guess(1)
	require.NoError(t, err)
	assert.Equal(t, model.TagPair{Tag: "Food", Subtag: "Coffee"}, guess)
}

func TestGuessBlankRowFatal(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.Zero},
	}, config.TaggingConfig{})

	_, err := e.Guess(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank line")
}

func TestApplyPresetsFirstRuleWins(t *testing.T) {
	cfg := config.TaggingConfig{
		PresetRules: []config.PresetRule{
			{Tag: "Food", Subtag: "Coffee", Filter: filter.Filter{Description: "(?i)coffee"}},
			{Tag: "Shopping", Filter: filter.Filter{Description: "(?i)shop"}},
		},
	}
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-05", "chk", "-10.00", "Coffee Shop"),
		txn("2024-01-06", "chk", "-99.00", "Gift Shop"),
		txn("2024-01-07", "chk", "-5.00", "Parking"),
	}, cfg)

	n, err := e.ApplyPresets()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := e.Rows()
	assert.Equal(t, "Food", rows[0].Tag(), "both rules match; the first listed wins")
	assert.Equal(t, "Shopping", rows[1].Tag())
	assert.False(t, rows[2].Tagged())
}

func TestApplyPresetsSkipsTaggedRows(t *testing.T) {
	cfg := config.TaggingConfig{
		PresetRules: []config.PresetRule{
			{Tag: "Shopping", Filter: filter.Filter{Description: "(?i)shop"}},
		},
	}
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-05", "chk", "-10.00", "Coffee Shop"),
	}, cfg)

	require.NoError(t, e.Apply(0, model.TagPair{Tag: "Food", Subtag: "Coffee"}))

	n, err := e.ApplyPresets()
	require.NoError(t, err)
	assert.Zero(t, n, "presets never overwrite existing tags")
	assert.Equal(t, "Food", e.Rows()[0].Tag())
}

func TestSummary(t *testing.T) {
	e := newTestEngine(t, []model.Transaction{
		txn("2024-01-05", "chk", "-10.00", "a"),
		txn("2024-01-06", "chk", "-11.00", "b"),
		txn("2024-01-07", "chk", "-12.00", "c"),
	}, config.TaggingConfig{})

	require.NoError(t, e.Apply(0, model.TagPair{Tag: "Food", Subtag: "Coffee"}))
	require.NoError(t, e.Apply(1, model.TagPair{Tag: "Food", Subtag: "Coffee"}))

	counts, untagged := e.Summary()
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, 1, untagged)
}

func TestValidateTagged(t *testing.T) {
	rows := Join([]model.Transaction{
		txn("2024-01-05", "chk", "-10.00", "a"),
		txn("2024-01-06", "chk", "-11.00", "b"),
	}, nil)

	err := ValidateTagged(rows)
	require.Error(t, err)

	var untagged *UntaggedError
	require.ErrorAs(t, err, &untagged)
	assert.Len(t, untagged.Rows, 2, "every offending row is reported")
	assert.Contains(t, err.Error(), "2 untagged")

	pair := model.TagPair{Tag: "x"}
	rows[0].Tags = &pair
	rows[1].Tags = &pair
	assert.NoError(t, ValidateTagged(rows))
}
