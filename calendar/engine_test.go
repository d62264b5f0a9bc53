package calendar_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/calendar"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/holidays"
	"github.com/warp/leave-register/ledger"
)

var d = generic.MustDate

func newTestEngine(t *testing.T) *calendar.Engine {
	t.Helper()
	return calendar.NewEngine(holidays.SpainMadrid())
}

func kindOn(days []calendar.ClassifiedDay, date generic.TimePoint) (calendar.Kind, bool) {
	for _, day := range days {
		if day.Date == date {
			return day.Kind, true
		}
	}
	return 0, false
}

// =============================================================================
// CLASSIFY
// =============================================================================

func TestClassify_January2024(t *testing.T) {
	// GIVEN: Jan 1 and Jan 2 marked as leave, Jan 1 is New Year
	e := newTestEngine(t)
	l := ledger.New(22)
	l.AddDay(d("2024-01-01"))
	l.AddDay(d("2024-01-02"))

	// WHEN: Classifying January 2024
	days := e.Classify(2024, time.January, l)

	// THEN: 23 weekdays, holiday wins over leave
	require.Len(t, days, 23)
	assert.Equal(t, calendar.ClassifiedDay{Date: d("2024-01-01"), Kind: calendar.KindHoliday}, days[0])
	assert.Equal(t, calendar.ClassifiedDay{Date: d("2024-01-02"), Kind: calendar.KindLeave}, days[1])

	kind, ok := kindOn(days, d("2024-01-03"))
	require.True(t, ok)
	assert.Equal(t, calendar.KindWorkday, kind)

	kind, ok = kindOn(days, d("2024-01-05"))
	require.True(t, ok)
	assert.Equal(t, calendar.KindWorkday, kind)

	_, ok = kindOn(days, d("2024-01-06"))
	assert.False(t, ok, "Saturday Jan 6 is not emitted even though it is a holiday")

	for i := 1; i < len(days); i++ {
		assert.True(t, days[i-1].Date.Before(days[i].Date))
	}
}

func TestClassify_CustomHoliday(t *testing.T) {
	e := newTestEngine(t)
	l := ledger.New(22)
	l.CustomHolidays = []ledger.CustomHoliday{ledger.Legacy(d("2024-02-14"))}
	l.AddDay(d("2024-02-14"))

	kind, ok := kindOn(e.Classify(2024, time.February, l), d("2024-02-14"))
	require.True(t, ok)
	assert.Equal(t, calendar.KindHoliday, kind)
}

func TestClassify_NilLedger(t *testing.T) {
	e := newTestEngine(t)
	days := e.Classify(2024, time.March, nil)
	assert.NotEmpty(t, days)

	kind, _ := kindOn(days, d("2024-03-28"))
	assert.Equal(t, calendar.KindHoliday, kind, "Jueves Santo in Madrid")
}

func TestClassify_Properties(t *testing.T) {
	e := newTestEngine(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	base := d("2023-01-01")
	build := func(offsets []int) *ledger.Ledger {
		l := ledger.New(22)
		for _, off := range offsets {
			l.AddDay(base.AddDays(off))
		}
		return l
	}

	properties.Property("no Saturday or Sunday is ever emitted", prop.ForAll(
		func(year, month int, offsets []int) bool {
			for _, day := range e.Classify(year, time.Month(month), build(offsets)) {
				if day.Date.IsWeekend() {
					return false
				}
			}
			return true
		},
		gen.IntRange(2023, 2026),
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1460)),
	))

	properties.Property("a regional holiday is never Leave", prop.ForAll(
		func(year, month int, offsets []int) bool {
			l := build(offsets)
			off := holidays.Lookup(e.Holidays(year, l))
			for _, day := range e.Classify(year, time.Month(month), l) {
				if _, isHoliday := off[day.Date]; isHoliday && day.Kind != calendar.KindHoliday {
					return false
				}
				if day.Kind == calendar.KindLeave && !l.HasDay(day.Date) {
					return false
				}
			}
			return true
		},
		gen.IntRange(2023, 2026),
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1460)),
	))

	properties.TestingRun(t)
}

// =============================================================================
// HOLIDAYS / OVERVIEW / SUMMARY
// =============================================================================

func TestHolidays_RegionalWinsOverCustom(t *testing.T) {
	e := newTestEngine(t)
	l := ledger.New(22)
	_, err := l.AddCustomHoliday(d("2024-05-02"), "Mine")
	require.NoError(t, err)
	_, err = l.AddCustomHoliday(d("2024-05-15"), "San Isidro")
	require.NoError(t, err)

	entries := e.Holidays(2024, l)
	byDate := holidays.Lookup(entries)

	assert.Equal(t, holidays.SourceRegional, byDate[d("2024-05-02")].Source)
	assert.Equal(t, holidays.SourceCustom, byDate[d("2024-05-15")].Source)
	assert.Equal(t, len(byDate), len(entries), "one entry per date")
}

func TestYearOverview(t *testing.T) {
	e := newTestEngine(t)
	l := ledger.New(22)
	l.AddDay(d("2023-12-29"))
	l.AddDay(d("2024-07-01"))
	l.AddDay(d("2024-07-02"))
	_, err := l.AddCustomHoliday(d("2024-05-15"), "San Isidro")
	require.NoError(t, err)

	ov := e.YearOverview(2024, l)

	assert.Equal(t, "ES-MD", ov.Region)
	assert.Equal(t, []generic.TimePoint{d("2024-07-01"), d("2024-07-02")}, ov.LeaveDays)
	assert.Equal(t, 3, ov.Used)
	assert.Equal(t, 2, ov.UsedInYear)
	assert.Equal(t, 19, ov.Remaining)
	require.Len(t, ov.Custom, 1)
	assert.Equal(t, "San Isidro", ov.Custom[0].Name)
	assert.NotEmpty(t, ov.Regional)
}

func TestMonthSummary_ContractedHours(t *testing.T) {
	// GIVEN: January 2024 in Madrid: 23 weekdays, Jan 1 holiday, Jan 2 leave
	e := newTestEngine(t)
	l := ledger.New(22)
	l.AddDay(d("2024-01-02"))

	// WHEN: Summarizing
	s := e.MonthSummary(2024, time.January, l)

	// THEN: 21 workdays at 7.5h
	assert.Equal(t, 1, s.Holidays)
	assert.Equal(t, 1, s.Leave)
	assert.Equal(t, 21, s.Workdays)
	assert.True(t, s.ContractedHours.Value.Equal(decimal.RequireFromString("157.5")))
	assert.Equal(t, generic.UnitHours, s.ContractedHours.Unit)
}

func TestWeekdays(t *testing.T) {
	assert.Equal(t,
		[]generic.TimePoint{d("2024-01-05"), d("2024-01-08")},
		calendar.Weekdays(d("2024-01-05"), d("2024-01-08")))
	assert.Empty(t, calendar.Weekdays(d("2024-01-08"), d("2024-01-05")))
}
