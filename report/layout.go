package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-register/generic"
)

// =============================================================================
// SCHEDULE - The fixed working day printed on every Workday row
// =============================================================================

// Schedule is the clock-in/clock-out pattern of a working day, as printed.
type Schedule struct {
	MorningIn    string `mapstructure:"morning_in"`
	MorningOut   string `mapstructure:"morning_out"`
	AfternoonIn  string `mapstructure:"afternoon_in"`
	AfternoonOut string `mapstructure:"afternoon_out"`
}

// DefaultSchedule is 9:00-13:00 and 14:00-17:30.
var DefaultSchedule = Schedule{
	MorningIn:    "9:00",
	MorningOut:   "13:00",
	AfternoonIn:  "14:00",
	AfternoonOut: "17:30",
}

// Times returns the four literals in slot order.
func (s Schedule) Times() [4]string {
	return [4]string{s.MorningIn, s.MorningOut, s.AfternoonIn, s.AfternoonOut}
}

// Hours is the worked duration of one day, e.g. 7.5.
func (s Schedule) Hours() (decimal.Decimal, error) {
	var minutes [4]int64
	for i, v := range s.Times() {
		t, err := time.Parse("15:04", v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: schedule time %q", generic.ErrInvalidTemplate, v)
		}
		minutes[i] = int64(t.Hour()*60 + t.Minute())
	}
	morning := minutes[1] - minutes[0]
	afternoon := minutes[3] - minutes[2]
	if morning < 0 || afternoon < 0 || minutes[2] < minutes[1] {
		return decimal.Zero, fmt.Errorf("%w: schedule times out of order", generic.ErrInvalidTemplate)
	}
	return decimal.NewFromInt(morning + afternoon).Div(decimal.NewFromInt(60)), nil
}

// =============================================================================
// HEADER KEYWORDS
// =============================================================================

// HeaderField is one header value.
type HeaderField int

const (
	FieldMonth HeaderField = iota
	FieldYear
	FieldWorkplace
	FieldNationalID
	FieldCompany
	FieldFullName
)

// HeaderKeyword maps slot-name substrings to a header field.
type HeaderKeyword struct {
	Field    HeaderField
	Keywords []string
}

// DefaultHeaderKeywords is checked in order; the first entry with a keyword
// contained in the (upper-cased) slot name wins. Company comes before name
// so "NOMBRE_EMPRESA" is the company.
var DefaultHeaderKeywords = []HeaderKeyword{
	{Field: FieldMonth, Keywords: []string{"MONTH", "MES"}},
	{Field: FieldYear, Keywords: []string{"YEAR", "AÑO", "ANO"}},
	{Field: FieldWorkplace, Keywords: []string{"WORKPLACE", "CENTRO"}},
	{Field: FieldNationalID, Keywords: []string{"NATIONAL_ID", "NIF", "DNI"}},
	{Field: FieldCompany, Keywords: []string{"COMPANY", "EMPRESA"}},
	{Field: FieldFullName, Keywords: []string{"NAME", "NOMBRE"}},
}

func matchHeader(keywords []HeaderKeyword, slotName string) (HeaderField, bool) {
	upper := strings.ToUpper(slotName)
	for _, hk := range keywords {
		for _, kw := range hk.Keywords {
			if strings.Contains(upper, strings.ToUpper(kw)) {
				return hk.Field, true
			}
		}
	}
	return 0, false
}

// =============================================================================
// LAYOUT - Geometry of the attendance form
// =============================================================================

// Layout is the contract between the compiler and a template: how many slots
// one day consumes and where each sub-field sits relative to the day's first
// slot. Templates whose day blocks are not Stride-aligned will be mis-filled;
// the layout cannot detect that, so it must match the template in use.
type Layout struct {
	Stride             int
	FirstPageOffset    int
	ContinuationOffset int
	TimeOffset         int
	DurationOffset     int
	StatusOffset       int
	WriteDuration      bool
	MonthSlot          int

	HolidayMarker  string
	LeaveMarker    string
	Schedule       Schedule
	Locale         string
	HeaderKeywords []HeaderKeyword
}

// DefaultLayout is the nine-cells-per-day form with English markers.
func DefaultLayout() Layout {
	return Layout{
		Stride:             9,
		FirstPageOffset:    5,
		ContinuationOffset: 0,
		TimeOffset:         1,
		DurationOffset:     7,
		StatusOffset:       8,
		MonthSlot:          4,
		HolidayMarker:      "HOLIDAY",
		LeaveMarker:        "LEAVE",
		Schedule:           DefaultSchedule,
		Locale:             "en",
		HeaderKeywords:     DefaultHeaderKeywords,
	}
}

// LocalizedLayout is DefaultLayout with markers and month names for locale.
// Unknown locales fall back to English.
func LocalizedLayout(locale string) Layout {
	l := DefaultLayout()
	if m, ok := markers[baseLanguage(locale)]; ok {
		l.HolidayMarker = m.holiday
		l.LeaveMarker = m.leave
		l.Locale = baseLanguage(locale)
	}
	return l
}

// Validate checks that every sub-field fits inside one stride.
func (l Layout) Validate() error {
	if l.Stride <= 0 {
		return fmt.Errorf("%w: stride must be positive", generic.ErrInvalidTemplate)
	}
	if l.FirstPageOffset < 0 || l.ContinuationOffset < 0 || l.TimeOffset < 1 || l.StatusOffset < 1 {
		return fmt.Errorf("%w: offsets must not be negative", generic.ErrInvalidTemplate)
	}

	widest := l.StatusOffset
	if last := l.TimeOffset + 3; last > widest {
		widest = last
	}
	if l.WriteDuration {
		if l.DurationOffset < 1 {
			return fmt.Errorf("%w: duration offset must be positive", generic.ErrInvalidTemplate)
		}
		if l.DurationOffset > widest {
			widest = l.DurationOffset
		}
	}
	if l.Stride < widest+1 {
		return fmt.Errorf("%w: stride %d too small for sub-field offset %d", generic.ErrInvalidTemplate, l.Stride, widest)
	}

	if l.HolidayMarker == "" || l.LeaveMarker == "" {
		return fmt.Errorf("%w: markers must not be empty", generic.ErrInvalidTemplate)
	}
	if _, err := l.Schedule.Hours(); err != nil {
		return err
	}
	return nil
}
