package tagstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ledgerline/ledgerline/internal/model"
	"github.com/ledgerline/ledgerline/internal/schema"
)

// Header is the CSV header for tags.csv.
const Header = "tag,subtag,hash"

const (
	numFields = 3
	colTag    = 0
	colSubtag = 1
	colHash   = 2
)

// Entry is one persisted tag assignment, keyed by fingerprint.
type Entry struct {
	Tag    string
	Subtag string
	Hash   uint64
}

// Pair returns the entry's tag pair.
func (e Entry) Pair() model.TagPair {
	return model.TagPair{Tag: e.Tag, Subtag: e.Subtag}
}

// ReadEntries reads all entries from a tags.csv reader.
func ReadEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading tags CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	if err := schema.ValidateHeader(records[0], schema.Tags); err != nil {
		return nil, err
	}

	var entries []Entry
	for i, rec := range records[1:] {
		entry, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// WriteEntries writes entries to a tags.csv writer (including header).
func WriteEntries(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(schema.Tags.Names()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, entry := range entries {
		if err := cw.Write(MarshalEntry(entry)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalEntry converts an Entry to a CSV row ([]string).
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTag] = e.Tag
	row[colSubtag] = e.Subtag
	row[colHash] = strconv.FormatUint(e.Hash, 10)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	hash, err := strconv.ParseUint(record[colHash], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing hash %q: %w", record[colHash], err)
	}

	return Entry{
		Tag:    record[colTag],
		Subtag: record[colSubtag],
		Hash:   hash,
	}, nil
}
