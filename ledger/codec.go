package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"github.com/warp/leave-register/generic"
)

// =============================================================================
// WIRE FORMAT
// =============================================================================
//
//	{
//	  "total_days": 22,
//	  "used_days": ["2024-01-02", "2024-01-03"],
//	  "custom_holidays": ["2024-02-14", {"date": "2024-03-01", "name": "Local fair"}],
//	  "profile": {"full_name": "..."}
//	}
//
// custom_holidays accepts both shapes on input; output is always objects.

type wireLedger struct {
	TotalDays      *int              `json:"total_days"`
	UsedDays       []json.RawMessage `json:"used_days"`
	CustomHolidays []json.RawMessage `json:"custom_holidays"`
	Profile        *Profile          `json:"profile,omitempty"`
}

type wireHoliday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type wireOut struct {
	TotalDays      int           `json:"total_days"`
	UsedDays       []string      `json:"used_days"`
	CustomHolidays []wireHoliday `json:"custom_holidays"`
	Profile        *Profile      `json:"profile,omitempty"`
}

// DecodeReport lists what Decode dropped or rewrote.
type DecodeReport struct {
	// Skipped holds the raw JSON of every entry that was not a valid date.
	Skipped []string
	// Migrated counts legacy bare-date custom holidays that were normalized.
	Migrated int
}

// Clean reports whether the input needed no repair.
func (r DecodeReport) Clean() bool {
	return len(r.Skipped) == 0 && r.Migrated == 0
}

// =============================================================================
// DECODE
// =============================================================================

// Decode parses a persisted or exported ledger. Malformed entries are skipped
// and listed in the report; only a structurally broken document is an error.
// A missing total_days falls back to DefaultTotalDays.
func Decode(data []byte) (*Ledger, DecodeReport, error) {
	var report DecodeReport

	var w wireLedger
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, report, fmt.Errorf("%w: ledger document: %v", generic.ErrInvalidInput, err)
	}

	total := DefaultTotalDays
	if w.TotalDays != nil {
		total = *w.TotalDays
	}
	l := New(total)
	if w.Profile != nil {
		l.Profile = *w.Profile
	}

	for _, raw := range w.UsedDays {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			report.Skipped = append(report.Skipped, string(raw))
			continue
		}
		d, err := generic.ParseDate(s)
		if err != nil {
			report.Skipped = append(report.Skipped, string(raw))
			continue
		}
		l.AddDay(d)
	}

	var holidays []CustomHoliday
	for _, raw := range w.CustomHolidays {
		h, ok := decodeHoliday(raw)
		if !ok {
			report.Skipped = append(report.Skipped, string(raw))
			continue
		}
		if h.Form == FormLegacy {
			report.Migrated++
		}
		holidays = append(holidays, h)
	}
	l.CustomHolidays = NormalizeCustomHolidays(holidays)

	return l, report, nil
}

func decodeHoliday(raw json.RawMessage) (CustomHoliday, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return CustomHoliday{}, false
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return CustomHoliday{}, false
		}
		d, err := generic.ParseDate(s)
		if err != nil {
			return CustomHoliday{}, false
		}
		return Legacy(d), true

	case '{':
		var wh wireHoliday
		if err := json.Unmarshal(trimmed, &wh); err != nil {
			return CustomHoliday{}, false
		}
		d, err := generic.ParseDate(wh.Date)
		if err != nil {
			return CustomHoliday{}, false
		}
		return Named(d, wh.Name), true
	}
	return CustomHoliday{}, false
}

// =============================================================================
// ENCODE
// =============================================================================

// Encode writes the persisted form: used days sorted, custom holidays as
// {date, name} objects, profile only when set.
func Encode(l *Ledger) ([]byte, error) {
	out := wireOut{
		TotalDays:      l.TotalDays,
		UsedDays:       make([]string, 0, l.UsedCount()),
		CustomHolidays: make([]wireHoliday, 0, len(l.CustomHolidays)),
	}
	for _, d := range l.UsedDays() {
		out.UsedDays = append(out.UsedDays, d.String())
	}
	for _, h := range NormalizeCustomHolidays(l.CustomHolidays) {
		out.CustomHolidays = append(out.CustomHolidays, wireHoliday{Date: h.Date.String(), Name: h.Name})
	}
	if !l.Profile.IsZero() {
		p := l.Profile
		out.Profile = &p
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger: %w", err)
	}
	return data, nil
}

// Export returns the canonical (RFC 8785) bytes of the ledger, so two exports
// of equal ledgers are byte-identical.
func Export(l *Ledger) ([]byte, error) {
	data, err := Encode(l)
	if err != nil {
		return nil, err
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize ledger: %w", err)
	}
	return canonical, nil
}
