/*
engine.go - Day classification

PURPOSE:
  Turns a (year, month, ledger) triple into the ordered list of working days
  of that month, each tagged Workday, Holiday or Leave. This is the single
  source of truth both the report compiler and the overview feed read from.

RULES:
  1. Only Monday to Friday appear. Weekends are never emitted.
  2. Holiday beats Leave: a leave day that is also a regional or custom
     holiday is classified Holiday, so it never costs a day of entitlement on
     the document.
  3. Regional holidays come from the injected holidays.Ruleset; custom ones
     from the ledger, normalized first.

SEE ALSO:
  - holidays/holidays.go: Ruleset
  - ledger/ledger.go: UsedDays, CustomHolidays
  - report/compiler.go: Consumes []ClassifiedDay
*/
package calendar

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/holidays"
	"github.com/warp/leave-register/ledger"
)

// Kind is the classification of one weekday.
type Kind int

const (
	KindWorkday Kind = iota
	KindHoliday
	KindLeave
)

func (k Kind) String() string {
	switch k {
	case KindHoliday:
		return "holiday"
	case KindLeave:
		return "leave"
	default:
		return "workday"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ClassifiedDay is one weekday and what it is.
type ClassifiedDay struct {
	Date generic.TimePoint `json:"date"`
	Kind Kind              `json:"kind"`
}

// DefaultDailyHours is the contracted working day (09:00-13:00, 14:00-17:30).
var DefaultDailyHours = decimal.RequireFromString("7.5")

// Engine classifies days against a regional ruleset.
type Engine struct {
	rules      holidays.Ruleset
	dailyHours decimal.Decimal
}

// Option configures an Engine.
type Option func(*Engine)

// WithDailyHours sets the hours of one working day used by MonthSummary.
func WithDailyHours(h decimal.Decimal) Option {
	return func(e *Engine) { e.dailyHours = h }
}

// NewEngine creates an engine over the given ruleset.
func NewEngine(rules holidays.Ruleset, opts ...Option) *Engine {
	e := &Engine{rules: rules, dailyHours: DefaultDailyHours}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the ruleset in use.
func (e *Engine) Rules() holidays.Ruleset { return e.rules }

// =============================================================================
// CLASSIFY
// =============================================================================

// Classify returns the weekdays of the month in ascending order. A nil ledger
// is treated as empty.
func (e *Engine) Classify(year int, month time.Month, l *ledger.Ledger) []ClassifiedDay {
	if l == nil {
		l = ledger.New(0)
	}
	off := holidays.Lookup(e.Holidays(year, l))

	weekdays := generic.MonthPeriod(year, month).Weekdays()
	days := make([]ClassifiedDay, 0, len(weekdays))
	for _, d := range weekdays {
		kind := KindWorkday
		if _, ok := off[d]; ok {
			kind = KindHoliday
		} else if l.HasDay(d) {
			kind = KindLeave
		}
		days = append(days, ClassifiedDay{Date: d, Kind: kind})
	}
	return days
}

// Holidays merges the regional holidays of the year with the ledger's custom
// ones. Sorted by date; when both define a date the regional entry is kept.
func (e *Engine) Holidays(year int, l *ledger.Ledger) []holidays.Entry {
	entries := e.rules.Holidays(year)
	if l == nil {
		return entries
	}

	taken := holidays.Lookup(entries)
	for _, h := range l.CustomHolidaysIn(generic.YearPeriod(year)) {
		if _, ok := taken[h.Date]; ok {
			continue
		}
		entry := holidays.Entry{Date: h.Date, Name: h.Name, Source: holidays.SourceCustom}
		taken[h.Date] = entry
		entries = append(entries, entry)
	}

	holidays.Sort(entries)
	return entries
}

// Weekdays returns the Monday to Friday dates in [from, to]. Empty when from
// is after to.
func Weekdays(from, to generic.TimePoint) []generic.TimePoint {
	if from.After(to) {
		return nil
	}
	return generic.Period{Start: from, End: to}.Weekdays()
}
