/*
Package ledger is the leave-ledger data model.

PURPOSE:
  One Ledger per user: the annual entitlement, the set of days taken as
  leave, the user's own holidays and a descriptive owner profile.

INVARIANTS:
  1. Every used day and custom-holiday date is a valid calendar day.
     Malformed persisted values are dropped at the decode boundary, one by
     one, and reported; they never reach the calendar engine.
  2. UsedDays is a SET. Adding a present day or removing an absent one is a
     no-op, not an error.
  3. Remaining = TotalDays - |UsedDays|, NOT clamped. A negative remainder is
     the user's warning signal.
  4. Custom holidays are a tagged variant, Legacy(date) | Named(date, name).
     Legacy entries (bare date strings in old files) are normalized to
     Named(date, "generic holiday"); normalizing twice changes nothing.

LIFECYCLE:
  Created at registration (New, or Import of an exported file), mutated by
  the operations below, never deleted here.

SEE ALSO:
  - codec.go: JSON interchange format (total_days / used_days / custom_holidays)
  - schema.go: Import validation
  - calendar/engine.go: Consumes the ledger to classify days
*/
package ledger

import (
	"github.com/warp/leave-register/generic"
)

// DefaultTotalDays is the entitlement of a freshly created ledger.
const DefaultTotalDays = 22

// DefaultHolidayName names custom holidays that were stored without one.
const DefaultHolidayName = "generic holiday"

// =============================================================================
// CUSTOM HOLIDAY - Tagged variant
// =============================================================================

// Form tells which shape a custom holiday was stored in.
type Form int

const (
	FormNamed  Form = iota // {"date": ..., "name": ...}
	FormLegacy             // "YYYY-MM-DD"
)

// CustomHoliday is a user-declared holiday.
type CustomHoliday struct {
	Date generic.TimePoint
	Name string
	Form Form
}

// Legacy builds the bare-date variant.
func Legacy(date generic.TimePoint) CustomHoliday {
	return CustomHoliday{Date: date, Form: FormLegacy}
}

// Named builds the named variant.
func Named(date generic.TimePoint, name string) CustomHoliday {
	return CustomHoliday{Date: date, Name: name, Form: FormNamed}
}

// Normalize returns the Named form of h.
func (h CustomHoliday) Normalize() CustomHoliday {
	name := h.Name
	if h.Form == FormLegacy || name == "" {
		name = DefaultHolidayName
	}
	return Named(h.Date, name)
}

// NormalizeCustomHolidays returns a normalized copy. Order is preserved and
// only the first entry per date is kept.
func NormalizeCustomHolidays(hs []CustomHoliday) []CustomHoliday {
	out := make([]CustomHoliday, 0, len(hs))
	seen := make(map[generic.TimePoint]bool, len(hs))
	for _, h := range hs {
		if h.Date.IsZero() || seen[h.Date] {
			continue
		}
		seen[h.Date] = true
		out = append(out, h.Normalize())
	}
	return out
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile describes the ledger owner. It is printed on the report header and
// plays no part in classification.
type Profile struct {
	FullName   string `json:"full_name,omitempty"`
	NationalID string `json:"national_id,omitempty"`
	Workplace  string `json:"workplace,omitempty"`
	Company    string `json:"company,omitempty"`
}

// IsZero reports whether no field is set.
func (p Profile) IsZero() bool { return p == Profile{} }

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is one user's leave record. Not safe for concurrent mutation; each
// request works on its own decoded copy.
type Ledger struct {
	TotalDays      int
	CustomHolidays []CustomHoliday
	Profile        Profile

	used map[generic.TimePoint]struct{}
}

// New creates an empty ledger with the given entitlement.
func New(totalDays int) *Ledger {
	return &Ledger{
		TotalDays: totalDays,
		used:      make(map[generic.TimePoint]struct{}),
	}
}

// Clone returns a deep copy.
func (l *Ledger) Clone() *Ledger {
	c := New(l.TotalDays)
	c.Profile = l.Profile
	c.CustomHolidays = append([]CustomHoliday(nil), l.CustomHolidays...)
	for d := range l.used {
		c.used[d] = struct{}{}
	}
	return c
}

// SetTotalDays edits the entitlement.
func (l *Ledger) SetTotalDays(n int) error {
	if n < 0 {
		return &generic.ValidationErrorDetail{Code: "negative_entitlement", Message: "total days must be >= 0"}
	}
	l.TotalDays = n
	return nil
}

// Remaining is TotalDays minus days used. May be negative.
func (l *Ledger) Remaining() int {
	return l.TotalDays - len(l.used)
}

// Balance is Remaining expressed as an Amount in days.
func (l *Ledger) Balance() generic.Amount {
	return generic.NewAmountFromInt(l.Remaining(), generic.UnitDays)
}

// =============================================================================
// USED DAYS
// =============================================================================

// AddDay marks d as leave. Returns false if it already was.
func (l *Ledger) AddDay(d generic.TimePoint) bool {
	if l.used == nil {
		l.used = make(map[generic.TimePoint]struct{})
	}
	if _, ok := l.used[d]; ok {
		return false
	}
	l.used[d] = struct{}{}
	return true
}

// RemoveDay unmarks d. Returns false if it was not marked.
func (l *Ledger) RemoveDay(d generic.TimePoint) bool {
	if _, ok := l.used[d]; !ok {
		return false
	}
	delete(l.used, d)
	return true
}

// HasDay reports whether d is marked as leave.
func (l *Ledger) HasDay(d generic.TimePoint) bool {
	_, ok := l.used[d]
	return ok
}

// AddRange marks every weekday of p and returns how many were new.
func (l *Ledger) AddRange(p generic.Period) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	added := 0
	for _, d := range p.Weekdays() {
		if l.AddDay(d) {
			added++
		}
	}
	return added, nil
}

// RemoveRange unmarks every weekday of p and returns how many were removed.
func (l *Ledger) RemoveRange(p generic.Period) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	removed := 0
	for _, d := range p.Weekdays() {
		if l.RemoveDay(d) {
			removed++
		}
	}
	return removed, nil
}

// ResetUsedDays clears every leave day and returns how many there were.
func (l *Ledger) ResetUsedDays() int {
	n := len(l.used)
	l.used = make(map[generic.TimePoint]struct{})
	return n
}

// UsedCount is |UsedDays|.
func (l *Ledger) UsedCount() int { return len(l.used) }

// UsedDays returns the leave days sorted ascending.
func (l *Ledger) UsedDays() []generic.TimePoint {
	days := make([]generic.TimePoint, 0, len(l.used))
	for d := range l.used {
		days = append(days, d)
	}
	generic.SortDays(days)
	return days
}

// UsedDaysIn returns the sorted leave days within p.
func (l *Ledger) UsedDaysIn(p generic.Period) []generic.TimePoint {
	var days []generic.TimePoint
	for _, d := range l.UsedDays() {
		if p.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// =============================================================================
// CUSTOM HOLIDAYS
// =============================================================================

// AddCustomHoliday declares a holiday on d. A date that is already a custom
// holiday is left untouched and false is returned.
func (l *Ledger) AddCustomHoliday(d generic.TimePoint, name string) (bool, error) {
	if name == "" {
		return false, &generic.ValidationErrorDetail{Code: "missing_name", Message: "custom holiday needs a name"}
	}
	if d.IsZero() {
		return false, &generic.ValidationErrorDetail{Code: "missing_date", Message: "custom holiday needs a date"}
	}
	for _, h := range l.CustomHolidays {
		if h.Date == d {
			return false, nil
		}
	}
	l.CustomHolidays = append(l.CustomHolidays, Named(d, name))
	return true, nil
}

// RemoveCustomHoliday drops the custom holiday on d, if any.
func (l *Ledger) RemoveCustomHoliday(d generic.TimePoint) bool {
	for i, h := range l.CustomHolidays {
		if h.Date == d {
			l.CustomHolidays = append(l.CustomHolidays[:i], l.CustomHolidays[i+1:]...)
			return true
		}
	}
	return false
}

// CustomHolidaysIn returns the normalized custom holidays within p, in
// declaration order.
func (l *Ledger) CustomHolidaysIn(p generic.Period) []CustomHoliday {
	var out []CustomHoliday
	for _, h := range NormalizeCustomHolidays(l.CustomHolidays) {
		if p.Contains(h.Date) {
			out = append(out, h)
		}
	}
	return out
}

// Normalize rewrites CustomHolidays into their Named form in place.
func (l *Ledger) Normalize() {
	l.CustomHolidays = NormalizeCustomHolidays(l.CustomHolidays)
}
