/*
compiler.go - Attendance form filling

PURPOSE:
  Writes a month of classified days onto the positional slots of an
  attendance-form template. Most slots carry no meaning in their name:
  position is meaning, so the compiler walks the slot list with a cursor.

PER PAGE:
  cursor starts at FirstPageOffset on page 0, ContinuationOffset afterwards.
  While cursor < len(slots) and days remain:

    slot[i]                 <- day of month ("1".."31")
    Holiday:  slot[i+8]     <- HolidayMarker
    Leave:    slot[i+8]     <- LeaveMarker
    Workday:  slot[i+1..4]  <- schedule times
              slot[i+7]     <- daily hours (only with WriteDuration)
    i += Stride

  Any write past the end of the page is dropped. The day number write and
  the cursor advance always happen, so one short page never shifts the days
  on the next one.

HEADER:
  Page 0 slots whose name contains a header keyword get the header value,
  independently of the cursor. When no slot matched a month keyword the
  month label goes to MonthSlot.

SEE ALSO:
  - layout.go: Offsets, markers, keywords
  - calendar/engine.go: Produces the days
*/
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/warp/leave-register/calendar"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/ledger"
)

// Header holds the values printed in the form's header.
type Header struct {
	Month      string
	Year       string
	Workplace  string
	NationalID string
	FullName   string
	Company    string
}

// NewHeader builds the header for a month from the owner's profile.
func NewHeader(year int, month time.Month, locale string, p ledger.Profile) Header {
	return Header{
		Month:      MonthLabel(month, locale),
		Year:       strconv.Itoa(year),
		Workplace:  p.Workplace,
		NationalID: p.NationalID,
		FullName:   p.FullName,
		Company:    p.Company,
	}
}

func (h Header) value(f HeaderField) string {
	switch f {
	case FieldMonth:
		return h.Month
	case FieldYear:
		return h.Year
	case FieldWorkplace:
		return h.Workplace
	case FieldNationalID:
		return h.NationalID
	case FieldCompany:
		return h.Company
	case FieldFullName:
		return h.FullName
	}
	return ""
}

// Compiler fills templates with one layout.
type Compiler struct {
	layout   Layout
	duration string
}

// NewCompiler validates the layout and returns a compiler for it.
func NewCompiler(layout Layout) (*Compiler, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	hours, err := layout.Schedule.Hours()
	if err != nil {
		return nil, err
	}
	return &Compiler{layout: layout, duration: hours.String()}, nil
}

// Layout returns the compiler's layout.
func (c *Compiler) Layout() Layout { return c.layout }

// Fill returns a filled copy of t. t itself is not modified.
func (c *Compiler) Fill(t Template, days []calendar.ClassifiedDay, h Header) (*Document, error) {
	if len(t.Pages) == 0 {
		return nil, fmt.Errorf("%w: template has no pages", generic.ErrInvalidTemplate)
	}

	out := t.clone()
	c.writeHeader(out.Pages[0], h)

	remaining := days
	for p := range out.Pages {
		if len(remaining) == 0 {
			break
		}
		start := c.layout.ContinuationOffset
		if p == 0 {
			start = c.layout.FirstPageOffset
		}
		remaining = c.fillPage(out.Pages[p], start, remaining)
	}

	return &Document{Pages: out.Pages}, nil
}

// fillPage writes days from cursor start on and returns the days that did
// not fit.
func (c *Compiler) fillPage(slots []Slot, start int, days []calendar.ClassifiedDay) []calendar.ClassifiedDay {
	set := func(i int, v string) {
		if i >= 0 && i < len(slots) {
			slots[i].Value = v
		}
	}

	i := start
	for i < len(slots) && len(days) > 0 {
		day := days[0]
		days = days[1:]

		set(i, strconv.Itoa(day.Date.Day()))
		switch day.Kind {
		case calendar.KindHoliday:
			set(i+c.layout.StatusOffset, c.layout.HolidayMarker)
		case calendar.KindLeave:
			set(i+c.layout.StatusOffset, c.layout.LeaveMarker)
		default:
			for k, v := range c.layout.Schedule.Times() {
				set(i+c.layout.TimeOffset+k, v)
			}
			if c.layout.WriteDuration {
				set(i+c.layout.DurationOffset, c.duration)
			}
		}
		i += c.layout.Stride
	}
	return days
}

func (c *Compiler) writeHeader(slots []Slot, h Header) {
	monthWritten := false
	for i := range slots {
		field, ok := matchHeader(c.layout.HeaderKeywords, slots[i].Name)
		if !ok {
			continue
		}
		if v := h.value(field); v != "" {
			slots[i].Value = v
			if field == FieldMonth {
				monthWritten = true
			}
		}
	}
	if !monthWritten && h.Month != "" && c.layout.MonthSlot >= 0 && len(slots) > c.layout.MonthSlot {
		slots[c.layout.MonthSlot].Value = h.Month
	}
}
