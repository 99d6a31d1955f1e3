// Package filter provides declarative predicates over tagged transactions.
// Filters appear in configuration (external/breakdown classification, preset
// tagging rules, bulk tag deletion) and as CLI flags.
package filter

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ledgerline/ledgerline/internal/model"
)

// Filter describes a predicate over tagged transactions. All set fields must
// match (logical AND). And/Or nest sub-filters and are mutually exclusive
// with the plain fields. A filter with nothing set matches every row; with
// Invert it matches none.
type Filter struct {
	StartDate   string   `yaml:"start_date,omitempty"` // inclusive, YYYY-MM-DD
	EndDate     string   `yaml:"end_date,omitempty"`   // exclusive, YYYY-MM-DD
	Tags        []string `yaml:"tags,omitempty"`
	Subtags     []string `yaml:"subtags,omitempty"`
	Description string   `yaml:"description,omitempty"` // regex
	Account     string   `yaml:"account,omitempty"`     // exact
	Source      string   `yaml:"source,omitempty"`      // regex
	And         []Filter `yaml:"and,omitempty"`
	Or          []Filter `yaml:"or,omitempty"`
	Invert      bool     `yaml:"invert,omitempty"`
}

// Predicate is a compiled filter.
type Predicate func(model.TaggedTransaction) bool

// Compile validates the filter and returns its predicate.
func (f Filter) Compile() (Predicate, error) {
	exclusive := 0
	if f.hasFields() {
		exclusive++
	}
	if len(f.And) > 0 {
		exclusive++
	}
	if len(f.Or) > 0 {
		exclusive++
	}
	if exclusive > 1 {
		return nil, fmt.Errorf("and, or, and plain predicates are mutually exclusive")
	}

	var pred Predicate
	switch {
	case len(f.Or) > 0:
		preds, err := compileAll(f.Or)
		if err != nil {
			return nil, err
		}
		pred = func(t model.TaggedTransaction) bool {
			for _, p := range preds {
				if p(t) {
					return true
				}
			}
			return false
		}
	case len(f.And) > 0:
		preds, err := compileAll(f.And)
		if err != nil {
			return nil, err
		}
		pred = func(t model.TaggedTransaction) bool {
			for _, p := range preds {
				if !p(t) {
					return false
				}
			}
			return true
		}
	default:
		var err error
		pred, err = f.compileFields()
		if err != nil {
			return nil, err
		}
	}

	if f.Invert {
		inner := pred
		return func(t model.TaggedTransaction) bool { return !inner(t) }, nil
	}
	return pred, nil
}

// Apply partitions rows into those matching the filter and the rest.
func (f Filter) Apply(rows []model.TaggedTransaction) (matched, rest []model.TaggedTransaction, err error) {
	pred, err := f.Compile()
	if err != nil {
		return nil, nil, err
	}
	for _, row := range rows {
		if pred(row) {
			matched = append(matched, row)
		} else {
			rest = append(rest, row)
		}
	}
	return matched, rest, nil
}

// Inverted returns a copy of the filter with the invert flag flipped.
func (f Filter) Inverted() Filter {
	f.Invert = !f.Invert
	return f
}

// IsZero reports whether nothing at all is set. A zero filter compiles to
// match-everything, which is almost never what an omitted config field
// means; callers use this to substitute a match-nothing default.
func (f Filter) IsZero() bool {
	return !f.hasFields() && len(f.And) == 0 && len(f.Or) == 0 && !f.Invert
}

func (f Filter) hasFields() bool {
	return f.StartDate != "" || f.EndDate != "" ||
		f.Tags != nil || f.Subtags != nil ||
		f.Description != "" || f.Account != "" || f.Source != ""
}

func compileAll(filters []Filter) ([]Predicate, error) {
	preds := make([]Predicate, len(filters))
	for i, sub := range filters {
		p, err := sub.Compile()
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

func (f Filter) compileFields() (Predicate, error) {
	var preds []Predicate

	if f.StartDate != "" {
		start, err := time.Parse(model.DateFormat, f.StartDate)
		if err != nil {
			return nil, fmt.Errorf("parsing start_date %q: %w", f.StartDate, err)
		}
		preds = append(preds, func(t model.TaggedTransaction) bool {
			return !t.Date.Before(start)
		})
	}
	if f.EndDate != "" {
		end, err := time.Parse(model.DateFormat, f.EndDate)
		if err != nil {
			return nil, fmt.Errorf("parsing end_date %q: %w", f.EndDate, err)
		}
		preds = append(preds, func(t model.TaggedTransaction) bool {
			return t.Date.Before(end)
		})
	}
	if f.Tags != nil {
		tags := toSet(f.Tags)
		preds = append(preds, func(t model.TaggedTransaction) bool {
			return tags[t.Tag()]
		})
	}
	if f.Subtags != nil {
		subtags := toSet(f.Subtags)
		preds = append(preds, func(t model.TaggedTransaction) bool {
			return subtags[t.Subtag()]
		})
	}
	if f.Description != "" {
		re, err := regexp.Compile(f.Description)
		if err != nil {
			return nil, fmt.Errorf("compiling description pattern %q: %w", f.Description, err)
		}
		preds = append(preds, func(t model.TaggedTransaction) bool {
			return re.MatchString(t.Description)
		})
	}
	if f.Account != "" {
		account := f.Account
		preds = append(preds, func(t model.TaggedTransaction) bool {
			return t.Account == account
		})
	}
	if f.Source != "" {
		re, err := regexp.Compile(f.Source)
		if err != nil {
			return nil, fmt.Errorf("compiling source pattern %q: %w", f.Source, err)
		}
		preds = append(preds, func(t model.TaggedTransaction) bool {
			return re.MatchString(t.Source)
		})
	}

	return func(t model.TaggedTransaction) bool {
		for _, p := range preds {
			if !p(t) {
				return false
			}
		}
		return true
	}, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
