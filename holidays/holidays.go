/*
Package holidays provides the regional public-holiday rule tables.

PURPOSE:
  Answers "which days are official holidays in <region> in <year>?".
  The answer is DATA, not logic: each region is a versioned table of rules
  (fixed day of month, offset from Easter, one-off dates for a single year).
  Deployments swap tables by region code or by loading a YAML file.

RULE ENGINE:
  Rules are github.com/rickar/cal/v2 Holiday values. cal computes the actual
  date per year (Easter arithmetic, start/end years, weekend substitutes);
  this package only decides WHICH rules a region has.

SOURCE:
  Every entry carries its Source so callers can tell the official calendar
  apart from the user's custom holidays once they are merged.

SEE ALSO:
  - spain.go: Built-in ES and ES-MD tables
  - file.go: YAML rule tables
  - calendar/engine.go: Merges a Ruleset with a ledger's custom holidays
*/
package holidays

import (
	"sort"

	"github.com/rickar/cal/v2"
	"github.com/warp/leave-register/generic"
)

// =============================================================================
// ENTRY - One holiday on one date
// =============================================================================

// Source tells where a holiday comes from.
type Source string

const (
	SourceRegional Source = "regional"
	SourceCustom   Source = "custom"
)

// Entry is a holiday occurrence.
type Entry struct {
	Date   generic.TimePoint `json:"date"`
	Name   string            `json:"name"`
	Source Source            `json:"source"`
}

// =============================================================================
// RULESET - Fixed, versioned regional table
// =============================================================================

// Ruleset computes the regional holidays of a year.
type Ruleset interface {
	// Region is the code the table was registered under, e.g. "ES-MD".
	Region() string

	// Version identifies the revision of the table data.
	Version() string

	// Holidays returns the year's holidays sorted by date, one per date.
	Holidays(year int) []Entry
}

// Table is a Ruleset backed by cal.Holiday rules.
type Table struct {
	region  string
	version string
	rules   []*cal.Holiday
}

// NewTable builds a table. Rules are evaluated in order; when two rules land
// on the same date the first one names it.
func NewTable(region, version string, rules ...*cal.Holiday) *Table {
	return &Table{region: region, version: version, rules: rules}
}

func (t *Table) Region() string  { return t.region }
func (t *Table) Version() string { return t.version }

// Holidays evaluates every rule for year.
func (t *Table) Holidays(year int) []Entry {
	seen := make(map[generic.TimePoint]bool)
	var entries []Entry
	for _, rule := range t.rules {
		actual, observed := rule.Calc(year)
		day := observed
		if day.IsZero() {
			day = actual
		}
		if day.IsZero() || day.Year() != year {
			continue
		}
		tp := generic.FromTime(day)
		if seen[tp] {
			continue
		}
		seen[tp] = true
		entries = append(entries, Entry{Date: tp, Name: rule.Name, Source: SourceRegional})
	}
	Sort(entries)
	return entries
}

// Extend returns a new table with extra rules appended after t's rules.
func (t *Table) Extend(region, version string, rules ...*cal.Holiday) *Table {
	merged := make([]*cal.Holiday, 0, len(t.rules)+len(rules))
	merged = append(merged, t.rules...)
	merged = append(merged, rules...)
	return NewTable(region, version, merged...)
}

// Sort orders entries by date, keeping the relative order of equal dates.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
}

// Lookup returns a map keyed by date for membership tests.
func Lookup(entries []Entry) map[generic.TimePoint]Entry {
	m := make(map[generic.TimePoint]Entry, len(entries))
	for _, e := range entries {
		if _, ok := m[e.Date]; !ok {
			m[e.Date] = e
		}
	}
	return m
}
