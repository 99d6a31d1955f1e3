package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/schema"
)

// Header is the CSV header for per-account source files.
const Header = "account,source,date,amount,description"

const (
	numFields = 5
	colAcct   = 0
	colSource = 1
	colDate   = 2
	colAmount = 3
	colDesc   = 4
)

// ReadTransactions reads all raw transactions from a source CSV reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading source CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	if err := schema.ValidateHeader(records[0], schema.Raw); err != nil {
		return nil, err
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes raw transactions to a source CSV writer
// (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(schema.Raw.Names()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row ([]string).
func MarshalTransaction(txn model.Transaction) []string {
	row := make([]string, numFields)
	row[colAcct] = txn.Account
	row[colSource] = txn.Source
	row[colDate] = txn.Date.Format(model.DateFormat)
	row[colAmount] = txn.Amount.StringFixed(2)
	row[colDesc] = txn.Description
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	if strings.TrimSpace(strings.Join(record, "")) == "" {
		return model.Transaction{}, fmt.Errorf("empty natural-key fields (likely a blank line in the source CSV)")
	}

	date, err := time.Parse(model.DateFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return model.Transaction{
		Account:     record[colAcct],
		Source:      record[colSource],
		Date:        date,
		Amount:      amount,
		Description: record[colDesc],
	}, nil
}
