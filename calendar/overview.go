package calendar

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/holidays"
	"github.com/warp/leave-register/ledger"
)

// =============================================================================
// YEAR OVERVIEW - Feed for the calendar widget and the summary panel
// =============================================================================

// Overview is everything a year view renders.
type Overview struct {
	Year      int                 `json:"year"`
	Region    string              `json:"region"`
	Regional  []holidays.Entry    `json:"regional_holidays"`
	Custom    []holidays.Entry    `json:"custom_holidays"`
	LeaveDays []generic.TimePoint `json:"leave_days"`

	Total      int `json:"total_days"`
	Used       int `json:"used_days"`
	UsedInYear int `json:"used_in_year"`
	Remaining  int `json:"remaining_days"`
}

// YearOverview collects the holidays (split by source) and leave days of a
// year. Totals cover the whole ledger, as entitlement is not per year.
func (e *Engine) YearOverview(year int, l *ledger.Ledger) Overview {
	if l == nil {
		l = ledger.New(0)
	}

	ov := Overview{
		Year:      year,
		Region:    e.rules.Region(),
		Regional:  []holidays.Entry{},
		Custom:    []holidays.Entry{},
		LeaveDays: l.UsedDaysIn(generic.YearPeriod(year)),
		Total:     l.TotalDays,
		Used:      l.UsedCount(),
		Remaining: l.Remaining(),
	}
	if ov.LeaveDays == nil {
		ov.LeaveDays = []generic.TimePoint{}
	}
	ov.UsedInYear = len(ov.LeaveDays)

	for _, h := range e.Holidays(year, l) {
		if h.Source == holidays.SourceCustom {
			ov.Custom = append(ov.Custom, h)
		} else {
			ov.Regional = append(ov.Regional, h)
		}
	}
	return ov
}

// =============================================================================
// MONTH SUMMARY
// =============================================================================

// Summary counts a month's classified days.
type Summary struct {
	Year            int            `json:"year"`
	Month           time.Month     `json:"month"`
	Workdays        int            `json:"workdays"`
	Holidays        int            `json:"holidays"`
	Leave           int            `json:"leave"`
	ContractedHours generic.Amount `json:"-"`
	Hours           string         `json:"contracted_hours"`
}

// MonthSummary counts workdays, holidays and leave for the month; contracted
// hours are workdays times the engine's daily hours.
func (e *Engine) MonthSummary(year int, month time.Month, l *ledger.Ledger) Summary {
	s := Summary{Year: year, Month: month}
	for _, day := range e.Classify(year, month, l) {
		switch day.Kind {
		case KindHoliday:
			s.Holidays++
		case KindLeave:
			s.Leave++
		default:
			s.Workdays++
		}
	}
	s.ContractedHours = generic.Amount{
		Value: e.dailyHours.Mul(decimal.NewFromInt(int64(s.Workdays))),
		Unit:  generic.UnitHours,
	}
	s.Hours = s.ContractedHours.String()
	return s
}
