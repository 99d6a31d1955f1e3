package enrich

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/schema"
)

// Columns describes exactly what MarshalTransaction emits, in order. It is
// checked against the enriched schema at the end of every pipeline run, so a
// writer/schema drift fails loudly instead of producing a malformed export.
var Columns = schema.Schema{
	{Name: "account", Kind: schema.KindString},
	{Name: "source", Kind: schema.KindString},
	{Name: "date", Kind: schema.KindDate},
	{Name: "amount", Kind: schema.KindDecimal},
	{Name: "description", Kind: schema.KindString},
	{Name: "tag", Kind: schema.KindString},
	{Name: "subtag", Kind: schema.KindString},
	{Name: "hash", Kind: schema.KindUint64},
	{Name: "month", Kind: schema.KindString},
	{Name: "tags", Kind: schema.KindString},
	{Name: "account_source", Kind: schema.KindString},
	{Name: "is_external", Kind: schema.KindBool},
	{Name: "is_breakdown", Kind: schema.KindBool},
	{Name: "is_edge_tick", Kind: schema.KindBool},
	{Name: "is_sentinel_tick", Kind: schema.KindBool},
	{Name: "balance_total", Kind: schema.KindDecimal},
	{Name: "balance_inexternal", Kind: schema.KindDecimal},
	{Name: "balance_account", Kind: schema.KindDecimal},
	{Name: "balance_source", Kind: schema.KindDecimal},
}

// Header is the CSV header for exported enriched tables.
var Header = Columns.Header()

// MarshalTransaction converts an enriched row to a CSV record in schema
// column order.
func MarshalTransaction(e model.EnrichedTransaction) []string {
	return []string{
		e.Account,
		e.Source,
		e.Date.Format(model.DateFormat),
		e.Amount.StringFixed(2),
		e.Description,
		e.Tag(),
		e.Subtag(),
		strconv.FormatUint(e.Fingerprint, 10),
		e.Month,
		e.TagLabel,
		e.AccountSource,
		strconv.FormatBool(e.IsExternal),
		strconv.FormatBool(e.IsBreakdown),
		strconv.FormatBool(e.IsEdgeTick),
		strconv.FormatBool(e.IsSentinelTick),
		e.BalanceTotal.StringFixed(2),
		e.BalanceInexternal.StringFixed(2),
		e.BalanceAccount.StringFixed(2),
		e.BalanceSource.StringFixed(2),
	}
}

// Write exports enriched rows as CSV, header first. Consumers validate the
// header against the enriched schema on their side.
func Write(w io.Writer, rows []model.EnrichedTransaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(MarshalTransaction(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	return cw.Error()
}
