/*
handlers.go - HTTP API handlers for the leave register

PURPOSE:
  Exposes timeoff.Service over REST. Handles HTTP request/response, JSON
  serialization, and delegates to the service.

ENDPOINTS:
  Auth (public):
    POST   /api/auth/register          Create account (+ optional seed ledger)
    POST   /api/auth/login             Get a bearer token

  Account:
    GET    /api/me                     Account profile
    PUT    /api/me/profile             Edit profile
    PUT    /api/me/password            Change password

  Ledger:
    GET    /api/ledger                 Current ledger (degraded when store down)
    PUT    /api/ledger/total           Edit entitlement
    POST   /api/ledger/days            Mark dates
    DELETE /api/ledger/days            Unmark dates
    POST   /api/ledger/ranges          Mark weekdays of a range
    DELETE /api/ledger/ranges          Unmark weekdays of a range
    POST   /api/ledger/reset           Clear all leave days
    POST   /api/ledger/holidays        Declare custom holiday
    DELETE /api/ledger/holidays/{date} Drop custom holiday
    GET    /api/ledger/export          Canonical export file
    POST   /api/ledger/import          Replace ledger from export file

  Calendar:
    GET    /api/calendar/{year}           Year overview
    GET    /api/calendar/{year}/{month}   Classified month + summary
    GET    /api/holidays/{year}           Regional holidays
    GET    /api/reports/{year}/{month}    Filled attendance form

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, invalid period, invalid template
  - 401: Bad credentials or token
  - 404: Not found
  - 409: Version conflict, account exists
  - 503: Store unavailable
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - auth.go: Tokens
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/ledger"
	"github.com/warp/leave-register/timeoff"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; export files are small.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *timeoff.Service
	Tokens  *TokenIssuer
	Logger  *zap.Logger
}

// NewHandler creates a handler.
func NewHandler(svc *timeoff.Service, tokens *TokenIssuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Tokens: tokens, Logger: logger}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Register creates an account and returns a token for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var seed *ledger.Ledger
	if len(req.Ledger) > 0 && !bytes.Equal(bytes.TrimSpace(req.Ledger), []byte("null")) {
		l, rep, err := ledger.Import(bytes.NewReader(req.Ledger))
		if err != nil {
			h.fail(w, r, "Invalid seed ledger", err)
			return
		}
		if !rep.Clean() {
			h.Logger.Warn("seed ledger repaired", zap.String("user", req.Username), zap.Strings("skipped", rep.Skipped))
		}
		seed = l
	}

	rec, err := h.Service.Register(r.Context(), generic.Username(req.Username), req.Password, req.Profile, seed)
	if err != nil {
		h.fail(w, r, "Registration failed", err)
		return
	}
	h.issue(w, http.StatusCreated, timeoff.NewSession(rec.Username, req.Locale), rec.Profile())
}

// Login verifies credentials and returns a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, rec, err := h.Service.Login(r.Context(), generic.Username(req.Username), req.Password, req.Locale)
	if err != nil {
		h.fail(w, r, "Login failed", err)
		return
	}
	h.issue(w, http.StatusOK, sess, rec.Profile())
}

func (h *Handler) issue(w http.ResponseWriter, status int, sess timeoff.Session, p ledger.Profile) {
	token, expires, err := h.Tokens.Issue(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, status, TokenDTO{
		Token:     token,
		ExpiresAt: formatExpiry(expires),
		Username:  string(sess.Username),
		Profile:   p,
	})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// GetProfile returns the account profile from the ledger snapshot.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	snap, err := h.Service.Bootstrap(r.Context(), sess)
	if err != nil {
		h.fail(w, r, "Failed to load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Ledger.Profile)
}

// UpdateProfile edits the profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p ledger.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	rec, err := h.Service.UpdateProfile(r.Context(), mustSession(r), p)
	if err != nil {
		h.fail(w, r, "Failed to update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Profile())
}

// ChangePassword sets a new password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), mustSession(r), req.Current, req.New); err != nil {
		h.fail(w, r, "Failed to change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger returns the current ledger.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Bootstrap(r.Context(), mustSession(r))
	if err != nil {
		h.fail(w, r, "Failed to load ledger", err)
		return
	}
	setETag(w, snap.Version)
	writeJSON(w, http.StatusOK, toLedgerDTO(snap))
}

// SetTotal edits the entitlement.
func (h *Handler) SetTotal(w http.ResponseWriter, r *http.Request) {
	var req TotalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.change(w, r)(h.Service.SetTotalDays(r.Context(), mustSession(r), ifMatch(r), req.TotalDays))
}

// AddDays marks dates as leave.
func (h *Handler) AddDays(w http.ResponseWriter, r *http.Request) {
	dates, ok := h.decodeDates(w, r)
	if !ok {
		return
	}
	h.change(w, r)(h.Service.AddDays(r.Context(), mustSession(r), ifMatch(r), dates...))
}

// RemoveDays unmarks dates.
func (h *Handler) RemoveDays(w http.ResponseWriter, r *http.Request) {
	dates, ok := h.decodeDates(w, r)
	if !ok {
		return
	}
	h.change(w, r)(h.Service.RemoveDays(r.Context(), mustSession(r), ifMatch(r), dates...))
}

// AddRange marks the weekdays of a range.
func (h *Handler) AddRange(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeRange(w, r)
	if !ok {
		return
	}
	h.change(w, r)(h.Service.AddRange(r.Context(), mustSession(r), ifMatch(r), p))
}

// RemoveRange unmarks the weekdays of a range.
func (h *Handler) RemoveRange(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeRange(w, r)
	if !ok {
		return
	}
	h.change(w, r)(h.Service.RemoveRange(r.Context(), mustSession(r), ifMatch(r), p))
}

// Reset clears all leave days.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.change(w, r)(h.Service.ResetUsedDays(r.Context(), mustSession(r), ifMatch(r)))
}

// AddHoliday declares a custom holiday.
func (h *Handler) AddHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := generic.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	h.change(w, r)(h.Service.AddCustomHoliday(r.Context(), mustSession(r), ifMatch(r), d, req.Name))
}

// RemoveHoliday drops a custom holiday.
func (h *Handler) RemoveHoliday(w http.ResponseWriter, r *http.Request) {
	d, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, r, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	h.change(w, r)(h.Service.RemoveCustomHoliday(r.Context(), mustSession(r), ifMatch(r), d))
}

// Export downloads the canonical export file.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.Service.Export(r.Context(), mustSession(r))
	if err != nil {
		h.fail(w, r, "Failed to export ledger", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="leave.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import replaces the ledger with the request body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	change, rep, err := h.Service.Import(r.Context(), mustSession(r), ifMatch(r), body)
	if err != nil {
		h.fail(w, r, "Import failed", err)
		return
	}
	skipped := rep.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	setETag(w, change.Version)
	writeJSON(w, http.StatusOK, ImportDTO{Ledger: toChangeDTO(change), Skipped: skipped, Migrated: rep.Migrated})
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetYear returns the year overview.
func (h *Handler) GetYear(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		h.fail(w, r, "Invalid year", err)
		return
	}
	ov, err := h.Service.Overview(r.Context(), mustSession(r), year)
	if err != nil {
		h.fail(w, r, "Failed to build overview", err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// GetMonth returns the classified month.
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		h.fail(w, r, "Invalid year or month", err)
		return
	}
	sess := mustSession(r)
	days, err := h.Service.Classify(r.Context(), sess, year, month)
	if err != nil {
		h.fail(w, r, "Failed to classify month", err)
		return
	}
	summary, err := h.Service.MonthSummary(r.Context(), sess, year, month)
	if err != nil {
		h.fail(w, r, "Failed to summarize month", err)
		return
	}
	writeJSON(w, http.StatusOK, MonthDTO{Days: days, Summary: summary})
}

// ListHolidays returns the regional holidays of a year.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		h.fail(w, r, "Invalid year", err)
		return
	}
	rules := h.Service.Rules()
	writeJSON(w, http.StatusOK, HolidaysDTO{
		Year:     year,
		Region:   rules.Region(),
		Version:  rules.Version(),
		Holidays: rules.Holidays(year),
	})
}

// GetReport returns the filled attendance form as canonical JSON.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		h.fail(w, r, "Invalid year or month", err)
		return
	}
	doc, err := h.Service.Report(r.Context(), mustSession(r), year, month)
	if err != nil {
		h.fail(w, r, "Failed to compile report", err)
		return
	}
	data, err := doc.Encode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode report", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Report-Filename", doc.Filename)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// HELPERS
// =============================================================================

// change adapts a service mutation result to a response.
func (h *Handler) change(w http.ResponseWriter, r *http.Request) func(timeoff.Change, error) {
	return func(c timeoff.Change, err error) {
		if err != nil {
			h.fail(w, r, "Ledger update failed", err)
			return
		}
		setETag(w, c.Version)
		writeJSON(w, http.StatusOK, toChangeDTO(c))
	}
}

func (h *Handler) decodeDates(w http.ResponseWriter, r *http.Request) ([]generic.TimePoint, bool) {
	var req DaysRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	dates, err := parseDates(req.Dates)
	if err != nil {
		h.fail(w, r, "Invalid date (use YYYY-MM-DD)", err)
		return nil, false
	}
	return dates, true
}

func (h *Handler) decodeRange(w http.ResponseWriter, r *http.Request) (generic.Period, bool) {
	var req RangeRequest
	if !decodeBody(w, r, &req) {
		return generic.Period{}, false
	}
	p, err := req.period()
	if err != nil {
		h.fail(w, r, "Invalid date (use YYYY-MM-DD)", err)
		return generic.Period{}, false
	}
	return p, true
}

// fail maps a domain error onto a status and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err), zap.String("path", r.URL.Path))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, generic.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrConflict), errors.Is(err, generic.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, generic.ErrUnavailable):
		return http.StatusServiceUnavailable
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func mustSession(r *http.Request) timeoff.Session {
	sess, ok := sessionFrom(r.Context())
	if !ok {
		panic("api: handler mounted without RequireSession")
	}
	return sess
}

// ifMatch reverses setETag: one layer of quotes comes off, nothing else.
func ifMatch(r *http.Request) generic.Version {
	v := strings.TrimPrefix(strings.TrimSpace(r.Header.Get("If-Match")), "W/")
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return generic.Version(v)
}

// setETag sends the version wrapped in quotes, without escaping, so that
// ifMatch gets back exactly the stored version.
func setETag(w http.ResponseWriter, v generic.Version) {
	if v != "" {
		w.Header().Set("ETag", `"`+string(v)+`"`)
	}
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		return 0, fmt.Errorf("%w: year %q", generic.ErrInvalidInput, chi.URLParam(r, "year"))
	}
	return year, nil
}

func monthParams(r *http.Request) (int, time.Month, error) {
	year, err := yearParam(r)
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("%w: month %q", generic.ErrInvalidInput, chi.URLParam(r, "month"))
	}
	return year, time.Month(m), nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
