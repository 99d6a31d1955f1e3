// Package schema defines the column contracts between pipeline stages and a
// strict structural-equality check. A dataset must satisfy the schema of its
// stage exactly: same column names, same kinds, nothing silently coerced.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a column.
type Kind string

const (
	KindString  Kind = "string"
	KindDate    Kind = "date"
	KindDecimal Kind = "decimal"
	KindUint64  Kind = "uint64"
	KindBool    Kind = "bool"
)

// Column is one named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered set of columns.
type Schema []Column

// Raw is the schema of per-account source CSVs.
var Raw = Schema{
	{Name: "account", Kind: KindString},
	{Name: "source", Kind: KindString},
	{Name: "date", Kind: KindDate},
	{Name: "amount", Kind: KindDecimal},
	{Name: "description", Kind: KindString},
}

// Tags is the schema of the persisted tag store.
var Tags = Schema{
	{Name: "tag", Kind: KindString},
	{Name: "subtag", Kind: KindString},
	{Name: "hash", Kind: KindUint64},
}

// Tagged is the raw schema joined with the tag store.
var Tagged = append(append(Schema{}, Raw...),
	Column{Name: "tag", Kind: KindString},
	Column{Name: "subtag", Kind: KindString},
	Column{Name: "hash", Kind: KindUint64},
)

// Enriched is the full analysis-ready schema exposed to reporting.
var Enriched = append(append(Schema{}, Tagged...),
	Column{Name: "month", Kind: KindString},
	Column{Name: "tags", Kind: KindString},
	Column{Name: "account_source", Kind: KindString},
	Column{Name: "is_external", Kind: KindBool},
	Column{Name: "is_breakdown", Kind: KindBool},
	Column{Name: "is_edge_tick", Kind: KindBool},
	Column{Name: "is_sentinel_tick", Kind: KindBool},
	Column{Name: "balance_total", Kind: KindDecimal},
	Column{Name: "balance_inexternal", Kind: KindDecimal},
	Column{Name: "balance_account", Kind: KindDecimal},
	Column{Name: "balance_source", Kind: KindDecimal},
)

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Header returns the comma-joined CSV header for the schema.
func (s Schema) Header() string {
	return strings.Join(s.Names(), ",")
}

// kindOf returns the kind of a named column, or false.
func (s Schema) kindOf(name string) (Kind, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Kind, true
		}
	}
	return "", false
}

// Violation describes one structural discrepancy between an actual dataset
// and its expected schema.
type Violation struct {
	Column      string
	Description string
}

func (v Violation) Error() string {
	return fmt.Sprintf("column %q: %s", v.Column, v.Description)
}

// ValidationError aggregates every violation found, not just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return "invalid schema: " + strings.Join(msgs, "; ")
}

// Validate compares an actual schema against an expected one and returns a
// single error listing all missing columns, extra columns, and kind
// mismatches. A nil return means the schemas agree exactly.
func Validate(actual, expected Schema) error {
	var violations []Violation

	for _, want := range expected {
		kind, ok := actual.kindOf(want.Name)
		if !ok {
			violations = append(violations, Violation{
				Column:      want.Name,
				Description: "missing",
			})
			continue
		}
		if kind != want.Kind {
			violations = append(violations, Violation{
				Column:      want.Name,
				Description: fmt.Sprintf("kind %s, expected %s", kind, want.Kind),
			})
		}
	}

	for _, got := range actual {
		if _, ok := expected.kindOf(got.Name); !ok {
			violations = append(violations, Violation{
				Column:      got.Name,
				Description: "unexpected extra column",
			})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ValidateHeader checks a CSV header row against the expected schema,
// requiring the exact column names in the exact order.
func ValidateHeader(header []string, expected Schema) error {
	var violations []Violation
	for i, want := range expected {
		if i >= len(header) {
			violations = append(violations, Violation{Column: want.Name, Description: "missing"})
			continue
		}
		if header[i] != want.Name {
			violations = append(violations, Violation{
				Column:      want.Name,
				Description: fmt.Sprintf("found %q at position %d", header[i], i),
			})
		}
	}
	for i := len(expected); i < len(header); i++ {
		violations = append(violations, Violation{
			Column:      header[i],
			Description: "unexpected extra column",
		})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
