// Package audit appends one CSV row per tagging action. The log is the
// forensic trail for "which tags were persisted before the crash/quit".
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Entry is one row in the tag log.
type Entry struct {
	Timestamp time.Time
	Action    string // "tag", "preset", "delete"
	Hash      uint64
	Tag       string
	Subtag    string
}

// Header is the CSV header for tag-log.csv.
const Header = "timestamp,action,hash,tag,subtag"

const numFields = 5

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	return []string{
		e.Timestamp.Format(time.RFC3339),
		e.Action,
		strconv.FormatUint(e.Hash, 10),
		e.Tag,
		e.Subtag,
	}
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[0], err)
	}
	hash, err := strconv.ParseUint(record[2], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing hash %q: %w", record[2], err)
	}

	return Entry{
		Timestamp: ts,
		Action:    record[1],
		Hash:      hash,
		Tag:       record[3],
		Subtag:    record[4],
	}, nil
}

// Append writes entries to the log file, creating it and the header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening tag log: %w", err)
	}
	defer f.Close()

	if needsHeader {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	cw := csv.NewWriter(f)
	defer cw.Flush()
	for _, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing log entry: %w", err)
		}
	}
	return cw.Error()
}

// Read loads all entries from the log file. A missing file is an empty log.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening tag log: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = numFields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading tag log: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
