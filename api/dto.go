/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP surface, kept apart from the domain types so the
  stored ledger format and the API can move independently.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VERSIONS:
  Ledger responses carry the store version in both the body and the ETag
  header. Mutations accept it back in If-Match; a stale value is a 409.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/leave-register/calendar"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/holidays"
	"github.com/warp/leave-register/ledger"
	"github.com/warp/leave-register/timeoff"
)

// =============================================================================
// AUTH
// =============================================================================

// RegisterRequest creates an account. Ledger optionally seeds it from an
// exported file.
type RegisterRequest struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Profile  ledger.Profile  `json:"profile"`
	Locale   string          `json:"locale,omitempty"`
	Ledger   json.RawMessage `json:"ledger,omitempty"`
}

// LoginRequest opens a session.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Locale   string `json:"locale,omitempty"`
}

// TokenDTO is returned by register and login.
type TokenDTO struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expires_at"`
	Username  string         `json:"username"`
	Profile   ledger.Profile `json:"profile"`
}

// PasswordRequest changes the password.
type PasswordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

// =============================================================================
// LEDGER
// =============================================================================

// CustomHolidayDTO is one user-declared holiday.
type CustomHolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// LedgerDTO is the ledger as the client sees it.
type LedgerDTO struct {
	Version        string             `json:"version"`
	Degraded       bool               `json:"degraded,omitempty"`
	TotalDays      int                `json:"total_days"`
	UsedDays       []string           `json:"used_days"`
	Remaining      int                `json:"remaining_days"`
	CustomHolidays []CustomHolidayDTO `json:"custom_holidays"`
	Profile        ledger.Profile     `json:"profile"`
	Changed        *int               `json:"changed,omitempty"`
}

// DaysRequest lists dates to add or remove.
type DaysRequest struct {
	Dates []string `json:"dates"`
}

// RangeRequest is an inclusive date range.
type RangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TotalRequest edits the entitlement.
type TotalRequest struct {
	TotalDays int `json:"total_days"`
}

// HolidayRequest declares a custom holiday.
type HolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// ImportDTO reports what an import did.
type ImportDTO struct {
	Ledger   LedgerDTO `json:"ledger"`
	Skipped  []string  `json:"skipped"`
	Migrated int       `json:"migrated"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// MonthDTO is a classified month and its counts.
type MonthDTO struct {
	Days    []calendar.ClassifiedDay `json:"days"`
	Summary calendar.Summary         `json:"summary"`
}

// HolidaysDTO lists a year's regional holidays.
type HolidaysDTO struct {
	Year     int              `json:"year"`
	Region   string           `json:"region"`
	Version  string           `json:"version"`
	Holidays []holidays.Entry `json:"holidays"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLedgerDTO(snap timeoff.Snapshot) LedgerDTO {
	l := snap.Ledger
	dto := LedgerDTO{
		Version:        string(snap.Version),
		Degraded:       snap.Degraded,
		TotalDays:      l.TotalDays,
		UsedDays:       make([]string, 0, l.UsedCount()),
		Remaining:      l.Remaining(),
		CustomHolidays: make([]CustomHolidayDTO, 0, len(l.CustomHolidays)),
		Profile:        l.Profile,
	}
	for _, d := range l.UsedDays() {
		dto.UsedDays = append(dto.UsedDays, d.String())
	}
	for _, h := range l.CustomHolidays {
		h = h.Normalize()
		dto.CustomHolidays = append(dto.CustomHolidays, CustomHolidayDTO{Date: h.Date.String(), Name: h.Name})
	}
	return dto
}

func toChangeDTO(c timeoff.Change) LedgerDTO {
	dto := toLedgerDTO(c.Snapshot)
	n := c.Changed
	dto.Changed = &n
	return dto
}

func parseDates(raw []string) ([]generic.TimePoint, error) {
	out := make([]generic.TimePoint, 0, len(raw))
	for _, s := range raw {
		d, err := generic.ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r RangeRequest) period() (generic.Period, error) {
	start, err := generic.ParseDate(r.Start)
	if err != nil {
		return generic.Period{}, err
	}
	end, err := generic.ParseDate(r.End)
	if err != nil {
		return generic.Period{}, err
	}
	return generic.Period{Start: start, End: end}, nil
}

func formatExpiry(t time.Time) string { return t.UTC().Format(time.RFC3339) }
