// Package knowledge holds the read-only tables the agent consults: property listings,
// advisory rules and per-phase content, plus the retrieval layer over them.
package knowledge

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/nlp"
)

// Filters maps a listing column to the values it must match. A listing passes a
// column when any value is a case-insensitive substring of the column (or satisfies the
// column's matcher). An empty value list never passes. Columns the listing lacks are
// skipped.
type Filters map[string][]string

// Set replaces the filter for column with a single value.
func (f Filters) Set(column, value string) {
	f[column] = []string{value}
}

// SetAny replaces the filter for column with a list of alternatives.
func (f Filters) SetAny(column string, values []string) {
	f[column] = append([]string(nil), values...)
}

// Matcher reports whether a listing column value satisfies one filter value.
type Matcher func(filter, value string) bool

// Base is the in-memory knowledge store. It is immutable after construction and safe
// for concurrent readers.
type Base struct {
	listings []models.Listing
	byID     map[string]int
	rules    models.RuleSet
	phases   map[string]models.PhaseKnowledge
	matchers map[string]Matcher
}

// Option configures a Base.
type Option func(*Base)

// WithMatcher registers a column-specific matcher in place of the substring test.
func WithMatcher(column string, m Matcher) Option {
	return func(b *Base) {
		b.matchers[column] = m
	}
}

// WithBudgetMatching compares the price column numerically with BudgetMatcher.
func WithBudgetMatching() Option {
	return WithMatcher(models.ColumnPrice, BudgetMatcher)
}

// NewBase builds a Base from already loaded tables. Every column uses ContainsFold
// unless an Option registers another matcher.
func NewBase(listings []models.Listing, rules models.RuleSet, phases map[string]models.PhaseKnowledge, opts ...Option) *Base {
	b := &Base{
		listings: listings,
		byID:     make(map[string]int, len(listings)),
		rules:    rules,
		phases:   make(map[string]models.PhaseKnowledge, len(phases)),
		matchers: make(map[string]Matcher),
	}
	for i, l := range listings {
		if l.ID != "" {
			b.byID[l.ID] = i
		}
	}
	for name, k := range phases {
		b.phases[strings.ToLower(name)] = k
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Len returns the number of listings.
func (b *Base) Len() int { return len(b.listings) }

// Rules returns the advisory rule table.
func (b *Base) Rules() models.RuleSet { return b.rules }

// PhaseKnowledge returns the content for a phase name, case-insensitively. Unknown
// phases yield the zero value.
func (b *Base) PhaseKnowledge(name string) models.PhaseKnowledge {
	return b.phases[strings.ToLower(name)]
}

// Listing looks up a listing by ID.
func (b *Base) Listing(id string) (models.Listing, bool) {
	i, ok := b.byID[id]
	if !ok {
		return models.Listing{}, false
	}
	return b.listings[i], true
}

// Properties scans listings in storage order and returns the first limit that pass
// every filter. It returns nil when nothing matches.
func (b *Base) Properties(filters Filters, limit int) []models.Listing {
	return b.Find(filters, limit, nil)
}

// Find is Properties with an additional exclusion predicate.
func (b *Base) Find(filters Filters, limit int, skip func(models.Listing) bool) []models.Listing {
	if limit <= 0 {
		return nil
	}
	var out []models.Listing
	for _, l := range b.listings {
		if skip != nil && skip(l) {
			continue
		}
		if !b.matches(l, filters) {
			continue
		}
		out = append(out, l)
		if len(out) >= limit {
			break
		}
	}
	slog.Debug("Base.Find", "filters", filters, "limit", limit, "matched", len(out))
	return out
}

func (b *Base) matches(l models.Listing, filters Filters) bool {
	for column, values := range filters {
		value, ok := l.Get(column)
		if !ok {
			continue
		}
		match := b.matchers[column]
		if match == nil {
			match = ContainsFold
		}
		passed := false
		for _, v := range values {
			if match(v, value) {
				passed = true
				break
			}
		}
		if !passed {
			return false
		}
	}
	return true
}

// ContainsFold is the default matcher: case-insensitive substring.
func ContainsFold(filter, value string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}

var priceRange = regexp.MustCompile(`^\s*(\d[\d,]*)\s*-\s*(\d[\d,]*)\s*$`)

// BudgetMatcher compares a budget filter with a listing price numerically. The filter is
// either an amount ("500 ألف جنيه", "450000") read as an upper bound, or a "low-high"
// range. When either side does not parse it falls back to ContainsFold.
func BudgetMatcher(filter, price string) bool {
	p, ok := parsePlain(price)
	if !ok {
		return ContainsFold(filter, price)
	}
	if m := priceRange.FindStringSubmatch(filter); m != nil {
		lo, okLo := parsePlain(m[1])
		hi, okHi := parsePlain(m[2])
		if okLo && okHi {
			return p >= lo && p <= hi
		}
	}
	if ceiling, ok := nlp.AmountValue(filter); ok {
		return p <= ceiling
	}
	return ContainsFold(filter, price)
}

func parsePlain(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
