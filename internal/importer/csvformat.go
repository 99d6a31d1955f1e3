package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/model"
)

// CSVParser parses a bank CSV export described by a configured column layout.
type CSVParser struct {
	format config.CSVFormat
}

// NewCSVParser creates a parser for one configured format.
func NewCSVParser(format config.CSVFormat) *CSVParser {
	return &CSVParser{format: format}
}

// Format returns the configured format name.
func (p *CSVParser) Format() string { return p.format.Name }

// Parse reads a bank CSV and returns raw transactions for the account.
func (p *CSVParser) Parse(r io.Reader, account, source string) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // banks pad rows inconsistently

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", p.format.Name, err)
	}

	if p.format.HasHeader && len(records) > 0 {
		records = records[1:]
	}

	var txns []model.Transaction
	for i, rec := range records {
		txn, err := p.parseRow(rec, account, source)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (p *CSVParser) parseRow(rec []string, account, source string) (model.Transaction, error) {
	maxCol := p.format.DateCol
	if p.format.AmountCol > maxCol {
		maxCol = p.format.AmountCol
	}
	if p.format.DescCol > maxCol {
		maxCol = p.format.DescCol
	}
	if len(rec) <= maxCol {
		return model.Transaction{}, fmt.Errorf("expected at least %d fields, got %d", maxCol+1, len(rec))
	}

	date, err := time.Parse(p.format.DateFormat, rec[p.format.DateCol])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[p.format.DateCol], err)
	}

	raw := rec[p.format.AmountCol]
	if p.format.AmountStrip != "" {
		raw = strings.Map(func(r rune) rune {
			if strings.ContainsRune(p.format.AmountStrip, r) {
				return -1
			}
			return r
		}, raw)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[p.format.AmountCol], err)
	}

	return model.Transaction{
		Account:     account,
		Source:      source,
		Date:        date,
		Amount:      amount,
		Description: strings.TrimSpace(rec[p.format.DescCol]),
	}, nil
}

// DefaultRegistry returns a registry with every configured format registered.
func DefaultRegistry(cfg *config.Config) *Registry {
	r := NewRegistry()
	for _, format := range cfg.Ingest.Formats {
		r.Register(NewCSVParser(format))
	}
	return r
}
