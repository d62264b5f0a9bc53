/*
service.go - Leave register orchestration

PURPOSE:
  Ties the pieces together for one session:

    RecordStore --(ledger)--> CalendarEngine --(days)--> DocumentCompiler
         ^                                                      |
         +---------------- mutations (conditional write) -------+

CONSISTENCY:
  Every mutation is read -> mutate -> Put(expected version). If the caller
  passes the version it last displayed, a newer remote version fails the
  mutation with ErrConflict before anything is written. Conflicts and store
  failures are returned as-is; the service never assumes a write succeeded.

FIRST RUN:
  A user with no ledger blob gets a fresh ledger with version "" (the first
  write creates the blob). Only Bootstrap additionally tolerates an
  unreachable store, returning an empty ledger flagged Degraded so the caller
  can show the user that nothing was loaded.

SEE ALSO:
  - session.go: Session
  - ledger/, calendar/, report/: Domain packages
  - api/handlers.go: HTTP surface
*/
package timeoff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/warp/leave-register/account"
	"github.com/warp/leave-register/calendar"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/holidays"
	"github.com/warp/leave-register/ledger"
	"github.com/warp/leave-register/recordstore"
	"github.com/warp/leave-register/report"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Snapshot is a ledger as read from the store.
type Snapshot struct {
	Ledger  *ledger.Ledger
	Version generic.Version
	// Degraded is set by Bootstrap when the store could not be read.
	Degraded bool
}

// Change is the outcome of a mutation.
type Change struct {
	Snapshot
	// Changed counts the dates actually added or removed.
	Changed int
}

// Service runs the leave register for any number of sessions.
type Service struct {
	store        generic.BlobStore
	accounts     *account.Directory
	engine       *calendar.Engine
	compiler     *report.Compiler
	template     *report.Template
	defaultTotal int
	logger       *zap.Logger
	tracer       trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithTemplate sets the attendance-form slot list used by Report.
func WithTemplate(t report.Template) Option {
	return func(s *Service) { s.template = &t }
}

// WithDefaultTotalDays sets the entitlement of new ledgers.
func WithDefaultTotalDays(n int) Option {
	return func(s *Service) { s.defaultTotal = n }
}

// NewService wires the service.
func NewService(
	store generic.BlobStore,
	accounts *account.Directory,
	engine *calendar.Engine,
	compiler *report.Compiler,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:        store,
		accounts:     accounts,
		engine:       engine,
		compiler:     compiler,
		defaultTotal: ledger.DefaultTotalDays,
		logger:       logger,
		tracer:       defaultTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the regional ruleset in use.
func (s *Service) Rules() holidays.Ruleset { return s.engine.Rules() }

// =============================================================================
// ACCOUNTS
// =============================================================================

// Register creates the account and its ledger. seed, when not nil, is an
// imported ledger to start from. When the ledger cannot be written the
// account is removed again.
func (s *Service) Register(ctx context.Context, username generic.Username, password string, profile ledger.Profile, seed *ledger.Ledger) (account.Record, error) {
	rec, err := s.accounts.Register(ctx, username, password, profile)
	if err != nil {
		return account.Record{}, err
	}

	l := seed
	if l == nil {
		l = ledger.New(s.defaultTotal)
	}
	if l.Profile.IsZero() {
		l.Profile = profile
	}
	_, err = s.write(ctx, username, l, "")
	if errors.Is(err, generic.ErrConflict) && seed == nil {
		// A ledger kept from before accounts existed; adopt it as is.
		s.logger.Info("adopting existing ledger", zap.String("user", string(username)))
		return rec, nil
	}
	if err != nil {
		if rmErr := s.accounts.Remove(ctx, username); rmErr != nil {
			s.logger.Error("failed to roll back account", zap.String("user", string(username)), zap.Error(rmErr))
		}
		return account.Record{}, fmt.Errorf("failed to create ledger: %w", err)
	}
	return rec, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, username generic.Username, password, locale string) (Session, account.Record, error) {
	rec, err := s.accounts.Verify(ctx, username, password)
	if err != nil {
		return Session{}, account.Record{}, err
	}
	sess := NewSession(username, locale)
	s.logger.Info("session opened", sess.fields()...)
	return sess, rec, nil
}

// UpdateProfile changes the account profile and mirrors it into the ledger.
func (s *Service) UpdateProfile(ctx context.Context, sess Session, p ledger.Profile) (account.Record, error) {
	rec, err := s.accounts.UpdateProfile(ctx, sess.Username, p)
	if err != nil {
		return account.Record{}, err
	}
	_, err = s.Mutate(ctx, sess, "", func(l *ledger.Ledger) (int, error) {
		l.Profile = p
		return 0, nil
	})
	return rec, err
}

// ChangePassword verifies the current password and sets a new one.
func (s *Service) ChangePassword(ctx context.Context, sess Session, current, next string) error {
	if _, err := s.accounts.Verify(ctx, sess.Username, current); err != nil {
		return err
	}
	return s.accounts.SetPassword(ctx, sess.Username, next)
}

// =============================================================================
// LEDGER READ / WRITE
// =============================================================================

// Load reads the session's ledger. A missing blob is a fresh ledger with
// version "".
func (s *Service) Load(ctx context.Context, sess Session) (snap Snapshot, err error) {
	ctx, span := s.startSpan(ctx, "ledger.load", sess)
	defer func() {
		if err == nil {
			span.SetAttributes(attrVersion.String(string(snap.Version)), attrUsedDays.Int(snap.Ledger.UsedCount()))
		}
		endSpan(span, err)
	}()
	return s.load(ctx, sess)
}

func (s *Service) load(ctx context.Context, sess Session) (Snapshot, error) {
	path, err := recordstore.LedgerPath(sess.Username)
	if err != nil {
		return Snapshot{}, err
	}

	blob, err := s.store.Get(ctx, path)
	if errors.Is(err, generic.ErrNotFound) {
		return Snapshot{Ledger: ledger.New(s.defaultTotal)}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}

	l, rep, err := ledger.Decode(blob.Content)
	if err != nil {
		return Snapshot{}, err
	}
	if !rep.Clean() {
		s.logger.Warn("ledger repaired on load",
			append(sess.fields(),
				zap.Strings("skipped", rep.Skipped),
				zap.Int("migrated", rep.Migrated))...)
	}
	return Snapshot{Ledger: l, Version: blob.Version}, nil
}

// Bootstrap is Load for the first screen of a session: an unreachable store
// yields an empty, Degraded ledger instead of an error.
func (s *Service) Bootstrap(ctx context.Context, sess Session) (Snapshot, error) {
	snap, err := s.Load(ctx, sess)
	if errors.Is(err, generic.ErrUnavailable) {
		s.logger.Warn("store unavailable on bootstrap, starting empty", append(sess.fields(), zap.Error(err))...)
		return Snapshot{Ledger: ledger.New(s.defaultTotal), Degraded: true}, nil
	}
	return snap, err
}

// Mutate applies fn to the current ledger and writes it back. When expected
// is set and the stored version differs, nothing is written and ErrConflict
// is returned. fn returns the number of dates it changed. A stored ledger that
// fn leaves unchanged is not rewritten.
func (s *Service) Mutate(ctx context.Context, sess Session, expected generic.Version, fn func(*ledger.Ledger) (int, error)) (Change, error) {
	snap, err := s.Load(ctx, sess)
	if err != nil {
		return Change{}, err
	}
	path, _ := recordstore.LedgerPath(sess.Username)
	if expected != "" && snap.Version != expected {
		return Change{}, generic.StaleVersionError(path, expected)
	}

	before, err := ledger.Encode(snap.Ledger)
	if err != nil {
		return Change{}, err
	}
	changed, err := fn(snap.Ledger)
	if err != nil {
		return Change{}, err
	}
	after, err := ledger.Encode(snap.Ledger)
	if err != nil {
		return Change{}, err
	}
	if bytes.Equal(before, after) && snap.Version != "" {
		return Change{Snapshot: snap, Changed: changed}, nil
	}

	version, err := s.save(ctx, sess, snap.Ledger, snap.Version)
	if err != nil {
		s.logger.Warn("ledger write failed", append(sess.fields(), zap.Error(err))...)
		return Change{}, err
	}
	snap.Version = version
	s.logger.Debug("ledger written", append(sess.fields(), zap.String("version", string(version)), zap.Int("changed", changed))...)
	return Change{Snapshot: snap, Changed: changed}, nil
}

// save is write inside a "ledger.save" span.
func (s *Service) save(ctx context.Context, sess Session, l *ledger.Ledger, expected generic.Version) (version generic.Version, err error) {
	ctx, span := s.startSpan(ctx, "ledger.save", sess)
	defer func() {
		if err == nil {
			span.SetAttributes(attrVersion.String(string(version)), attrUsedDays.Int(l.UsedCount()))
		}
		endSpan(span, err)
	}()
	return s.write(ctx, sess.Username, l, expected)
}

func (s *Service) write(ctx context.Context, username generic.Username, l *ledger.Ledger, expected generic.Version) (generic.Version, error) {
	path, err := recordstore.LedgerPath(username)
	if err != nil {
		return "", err
	}
	data, err := ledger.Encode(l)
	if err != nil {
		return "", err
	}
	return s.store.Put(ctx, path, data, expected)
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

// AddDays marks dates as leave.
func (s *Service) AddDays(ctx context.Context, sess Session, expected generic.Version, days ...generic.TimePoint) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) {
		n := 0
		for _, d := range days {
			if l.AddDay(d) {
				n++
			}
		}
		return n, nil
	})
}

// RemoveDays unmarks dates.
func (s *Service) RemoveDays(ctx context.Context, sess Session, expected generic.Version, days ...generic.TimePoint) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) {
		n := 0
		for _, d := range days {
			if l.RemoveDay(d) {
				n++
			}
		}
		return n, nil
	})
}

// AddRange marks the weekdays of p.
func (s *Service) AddRange(ctx context.Context, sess Session, expected generic.Version, p generic.Period) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) { return l.AddRange(p) })
}

// RemoveRange unmarks the weekdays of p.
func (s *Service) RemoveRange(ctx context.Context, sess Session, expected generic.Version, p generic.Period) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) { return l.RemoveRange(p) })
}

// ResetUsedDays clears every leave day.
func (s *Service) ResetUsedDays(ctx context.Context, sess Session, expected generic.Version) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) { return l.ResetUsedDays(), nil })
}

// SetTotalDays edits the entitlement.
func (s *Service) SetTotalDays(ctx context.Context, sess Session, expected generic.Version, n int) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) { return 0, l.SetTotalDays(n) })
}

// AddCustomHoliday declares a holiday.
func (s *Service) AddCustomHoliday(ctx context.Context, sess Session, expected generic.Version, d generic.TimePoint, name string) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) {
		added, err := l.AddCustomHoliday(d, name)
		if added {
			return 1, err
		}
		return 0, err
	})
}

// RemoveCustomHoliday drops a custom holiday.
func (s *Service) RemoveCustomHoliday(ctx context.Context, sess Session, expected generic.Version, d generic.TimePoint) (Change, error) {
	return s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) {
		if l.RemoveCustomHoliday(d) {
			return 1, nil
		}
		return 0, nil
	})
}

// Import replaces the ledger with an exported file.
func (s *Service) Import(ctx context.Context, sess Session, expected generic.Version, r io.Reader) (Change, ledger.DecodeReport, error) {
	imported, rep, err := ledger.Import(r)
	if err != nil {
		return Change{}, rep, err
	}
	change, err := s.Mutate(ctx, sess, expected, func(l *ledger.Ledger) (int, error) {
		profile := l.Profile
		*l = *imported
		if l.Profile.IsZero() {
			l.Profile = profile
		}
		return l.UsedCount(), nil
	})
	return change, rep, err
}

// Export returns the canonical export file of the ledger.
func (s *Service) Export(ctx context.Context, sess Session) ([]byte, error) {
	snap, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	return ledger.Export(snap.Ledger)
}

// =============================================================================
// CALENDAR AND REPORT
// =============================================================================

// Classify returns the month's classified weekdays for the session's ledger.
func (s *Service) Classify(ctx context.Context, sess Session, year int, month time.Month) ([]calendar.ClassifiedDay, error) {
	snap, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.engine.Classify(year, month, snap.Ledger), nil
}

// Overview returns the year feed of the session's ledger.
func (s *Service) Overview(ctx context.Context, sess Session, year int) (calendar.Overview, error) {
	snap, err := s.Load(ctx, sess)
	if err != nil {
		return calendar.Overview{}, err
	}
	return s.engine.YearOverview(year, snap.Ledger), nil
}

// MonthSummary counts the month's classified days.
func (s *Service) MonthSummary(ctx context.Context, sess Session, year int, month time.Month) (calendar.Summary, error) {
	snap, err := s.Load(ctx, sess)
	if err != nil {
		return calendar.Summary{}, err
	}
	return s.engine.MonthSummary(year, month, snap.Ledger), nil
}

// Report fills the configured template for a month.
func (s *Service) Report(ctx context.Context, sess Session, year int, month time.Month) (*report.Document, error) {
	if s.template == nil {
		return nil, fmt.Errorf("%w: no attendance template configured", generic.ErrInvalidTemplate)
	}
	return s.ReportWith(ctx, sess, *s.template, year, month)
}

// ReportWith fills the given template for a month.
func (s *Service) ReportWith(ctx context.Context, sess Session, t report.Template, year int, month time.Month) (*report.Document, error) {
	snap, err := s.Load(ctx, sess)
	if err != nil {
		return nil, err
	}

	profile := snap.Ledger.Profile
	if rec, err := s.accounts.Get(ctx, sess.Username); err == nil && !rec.Profile().IsZero() {
		profile = rec.Profile()
	} else if err != nil && !errors.Is(err, generic.ErrNotFound) {
		return nil, err
	}

	locale := sess.Locale
	if locale == "" {
		locale = s.compiler.Layout().Locale
	}
	days := s.engine.Classify(year, month, snap.Ledger)
	doc, err := s.compiler.Fill(t, days, report.NewHeader(year, month, locale, profile))
	if err != nil {
		return nil, err
	}
	doc.Filename = report.Filename(month, locale, "pdf")

	s.logger.Info("report compiled", append(sess.fields(),
		zap.Int("year", year),
		zap.String("month", month.String()),
		zap.Int("days", len(days)))...)
	return doc, nil
}
