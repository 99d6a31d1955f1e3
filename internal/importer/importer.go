// Package importer turns bank-export files into raw-schema transactions.
// Bank-specific scraping stays outside the core: a parser only has to
// produce the fixed raw schema, and everything downstream is format-agnostic.
package importer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Parser converts one bank-export file into transactions for an account.
type Parser interface {
	Parse(r io.Reader, account, source string) ([]model.Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or an error naming the known formats.
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (known: %s)", format, strings.Join(r.Formats(), ", "))
	}
	return p, nil
}

// Formats returns the registered format names.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
