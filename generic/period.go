package generic

import (
	"sort"
	"time"
)

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is the closed interval [Start, End].
//
// Examples:
//   - A report month: Jan 1 - Jan 31
//   - A calendar year: Jan 1 - Dec 31
//   - A leave range picked by the user: Mar 10 - Mar 14
type Period struct {
	Start TimePoint
	End   TimePoint
}

// MonthPeriod returns the period covering the whole month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// YearPeriod returns the calendar year.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Validate rejects periods whose end is before their start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Weekdays returns the Monday-Friday days of the period.
func (p Period) Weekdays() []TimePoint {
	var days []TimePoint
	for _, d := range p.Days() {
		if d.IsWorkday() {
			days = append(days, d)
		}
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// SortDays sorts days ascending in place.
func SortDays(days []TimePoint) {
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
}
