package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Service loads and persists the per-account raw transaction CSVs that make
// up the ledger. One file per account under sourceDir.
type Service struct {
	sourceDir string
}

// NewService creates a ledger Service rooted at sourceDir.
func NewService(sourceDir string) *Service {
	return &Service{sourceDir: sourceDir}
}

// SourceDir returns the directory holding the per-account CSVs.
func (s *Service) SourceDir() string { return s.sourceDir }

// LoadAll reads every *.csv under sourceDir and returns the concatenated
// ledger sorted by (date, amount). A missing or empty directory is a valid
// zero-row ledger.
func (s *Service) LoadAll() ([]model.Transaction, error) {
	entries, err := os.ReadDir(s.sourceDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading source dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var all []model.Transaction
	for _, name := range names {
		path := filepath.Join(s.sourceDir, name)
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening source %s: %w", path, err)
		}
		txns, err := ReadTransactions(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading source %s: %w", path, err)
		}
		all = append(all, txns...)
	}

	SortCanonical(all)
	return all, nil
}

// LoadAccount reads one account's CSV. A missing file is an empty account.
func (s *Service) LoadAccount(account string) ([]model.Transaction, error) {
	path := filepath.Join(s.sourceDir, account+".csv")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening source %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", path, err)
	}
	return txns, nil
}

// WriteAccount persists an account's transactions to <sourceDir>/<account>.csv,
// sorted by (date, amount).
func (s *Service) WriteAccount(account string, txns []model.Transaction) error {
	if err := os.MkdirAll(s.sourceDir, 0o755); err != nil {
		return fmt.Errorf("creating source dir: %w", err)
	}

	sorted := append([]model.Transaction{}, txns...)
	SortCanonical(sorted)

	path := filepath.Join(s.sourceDir, account+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating source %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteTransactions(f, sorted); err != nil {
		return fmt.Errorf("writing source %s: %w", path, err)
	}
	return nil
}

// SortCanonical orders raw transactions by (date, amount), the on-disk order
// of source files.
func SortCanonical(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Amount.LessThan(b.Amount)
	})
}
