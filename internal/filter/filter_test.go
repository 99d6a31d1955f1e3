package filter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/model"
)

func row(account, source, date, desc, tag, subtag string) model.TaggedTransaction {
	d, err := time.Parse(model.DateFormat, date)
	if err != nil {
		panic(err)
	}
	t := model.TaggedTransaction{
		Transaction: model.Transaction{
			Account:     account,
			Source:      source,
			Date:        d,
			Amount:      decimal.New(-10, 0),
			Description: desc,
		},
	}
	if tag != "" {
		t.Tags = &model.TagPair{Tag: tag, Subtag: subtag}
	}
	return t
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	pred, err := Filter{}.Compile()
	require.NoError(t, err)
	assert.True(t, pred(row("chk", "debit", "2024-01-05", "x", "Food", "")))
}

func TestInvertedEmptyFilterMatchesNothing(t *testing.T) {
	// The default external-accounts filter is exactly this: an inverted
	// empty filter, classifying no row as external.
	pred, err := Filter{Invert: true}.Compile()
	require.NoError(t, err)
	assert.False(t, pred(row("chk", "debit", "2024-01-05", "x", "Food", "")))
}

func TestDateBounds(t *testing.T) {
	pred, err := Filter{StartDate: "2024-01-05", EndDate: "2024-02-01"}.Compile()
	require.NoError(t, err)

	assert.False(t, pred(row("chk", "debit", "2024-01-04", "x", "", "")))
	assert.True(t, pred(row("chk", "debit", "2024-01-05", "x", "", "")), "start is inclusive")
	assert.True(t, pred(row("chk", "debit", "2024-01-31", "x", "", "")))
	assert.False(t, pred(row("chk", "debit", "2024-02-01", "x", "", "")), "end is exclusive")
}

func TestTagAndDescriptionFields(t *testing.T) {
	pred, err := Filter{Tags: []string{"Food"}, Description: "(?i)coffee"}.Compile()
	require.NoError(t, err)

	assert.True(t, pred(row("chk", "debit", "2024-01-05", "COFFEE SHOP", "Food", "Coffee")))
	assert.False(t, pred(row("chk", "debit", "2024-01-05", "COFFEE SHOP", "Rent", "")))
	assert.False(t, pred(row("chk", "debit", "2024-01-05", "Bakery", "Food", "")))
}

func TestOrFilters(t *testing.T) {
	f := Filter{Or: []Filter{
		{Account: "chk"},
		{Tags: []string{"Transfer"}},
	}}
	pred, err := f.Compile()
	require.NoError(t, err)

	assert.True(t, pred(row("chk", "debit", "2024-01-05", "x", "Food", "")))
	assert.True(t, pred(row("card", "card", "2024-01-05", "x", "Transfer", "")))
	assert.False(t, pred(row("card", "card", "2024-01-05", "x", "Food", "")))
}

func TestMutuallyExclusivePredicates(t *testing.T) {
	_, err := Filter{Account: "chk", Or: []Filter{{Account: "card"}}}.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestBadRegexIsAnError(t *testing.T) {
	_, err := Filter{Description: "("}.Compile()
	require.Error(t, err)
}

func TestApplyPartitions(t *testing.T) {
	rows := []model.TaggedTransaction{
		row("chk", "debit", "2024-01-05", "a", "Food", ""),
		row("card", "card", "2024-01-06", "b", "Rent", ""),
	}
	matched, rest, err := Filter{Tags: []string{"Food"}}.Apply(rows)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Len(t, rest, 1)
	assert.Equal(t, "a", matched[0].Description)
	assert.Equal(t, "b", rest[0].Description)
}
