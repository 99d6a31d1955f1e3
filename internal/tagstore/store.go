package tagstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
)

// backupTimeFormat embeds a lexically sortable timestamp in backup names so
// backups can be pruned oldest-first.
const backupTimeFormat = "20060102-150405"

// Store persists the fingerprint -> (tag, subtag) table as a flat CSV file.
type Store struct {
	path string
}

// New creates a Store backed by the given tags.csv path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads all persisted entries. A missing file is the valid "no tags yet"
// state: it is created header-only and an empty table is returned.
func (s *Store) Load() ([]Entry, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.write(nil); err != nil {
			return nil, fmt.Errorf("initializing tag store: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening tag store %s: %w", s.path, err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading tag store %s: %w", s.path, err)
	}
	return entries, nil
}

// Index returns a fingerprint-keyed lookup over entries.
func Index(entries []Entry) map[uint64]model.TagPair {
	idx := make(map[uint64]model.TagPair, len(entries))
	for _, e := range entries {
		idx[e.Hash] = e.Pair()
	}
	return idx
}

// Upsert merges new entries into the persisted table, keyed by fingerprint.
// A fingerprint present in both keeps the new entry (last-write-wins). The
// result is re-sorted by (tag, subtag, hash) before persisting so the on-disk
// file has deterministic, diff-friendly ordering. Returns the merged table.
func (s *Store) Upsert(entries []Entry) ([]Entry, error) {
	existing, err := s.Load()
	if err != nil {
		return nil, err
	}

	merged := Merge(existing, entries)
	if err := s.write(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines two entry sets with last-write-wins semantics for duplicate
// fingerprints and returns the result in canonical sort order.
func Merge(existing, updates []Entry) []Entry {
	byHash := make(map[uint64]Entry, len(existing)+len(updates))
	for _, e := range existing {
		byHash[e.Hash] = e
	}
	for _, e := range updates {
		byHash[e.Hash] = e
	}

	merged := make([]Entry, 0, len(byHash))
	for _, e := range byHash {
		merged = append(merged, e)
	}
	Sort(merged)
	return merged
}

// Sort orders entries by (tag, subtag, hash), the canonical on-disk order.
func Sort(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Tag != b.Tag {
			return a.Tag < b.Tag
		}
		if a.Subtag != b.Subtag {
			return a.Subtag < b.Subtag
		}
		return a.Hash < b.Hash
	})
}

// Replace backs up the current file with a timestamped copy, then overwrites
// the table with the given entries. Used by destructive bulk deletes: the
// backup always lands on disk before the new content, so a crash mid-write
// cannot lose the previous state.
func (s *Store) Replace(entries []Entry) (backupPath string, err error) {
	backupPath, err = s.backup()
	if err != nil {
		return "", err
	}

	sorted := append([]Entry{}, entries...)
	Sort(sorted)
	if err := s.write(sorted); err != nil {
		return "", err
	}
	return backupPath, nil
}

// backup copies the current tags file to a sibling file named like
// tags-20240105-153000.csv.bak. Returns "" when there is nothing to back up.
func (s *Store) backup() (string, error) {
	src, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("opening tag store for backup: %w", err)
	}
	defer src.Close()

	stem := s.path[:len(s.path)-len(filepath.Ext(s.path))]
	backupPath := fmt.Sprintf("%s-%s.csv.bak", stem, time.Now().Format(backupTimeFormat))

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return backupPath, nil
}

// PruneBackups deletes the oldest backups beyond keep. The sortable timestamp
// in the filename makes lexical order chronological order.
func (s *Store) PruneBackups(keep int) error {
	if keep < 0 {
		return nil
	}
	stem := s.path[:len(s.path)-len(filepath.Ext(s.path))]
	backups, err := filepath.Glob(stem + "-*.csv.bak")
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}
	sort.Strings(backups)
	for len(backups) > keep {
		if err := os.Remove(backups[0]); err != nil {
			return fmt.Errorf("pruning backup %s: %w", backups[0], err)
		}
		backups = backups[1:]
	}
	return nil
}

// write atomically persists entries: write a temp file in the same directory,
// then rename over the target.
func (s *Store) write(entries []Entry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating tag store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tags-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp tag store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteEntries(tmp, entries); err != nil {
		tmp.Close()
		return fmt.Errorf("writing tag store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp tag store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing tag store: %w", err)
	}
	return nil
}
