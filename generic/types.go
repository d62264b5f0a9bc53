/*
Package generic provides the domain-agnostic primitives of the leave register.

PURPOSE:
  Types every other package speaks: calendar days, periods, quantities with
  a unit, the versioned blob store contract and the shared error values.
  Nothing here knows about ledgers, templates or holidays.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 22 days, 7.5 hours)
  - Username: The key every per-user record is stored under

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 7.5h * 21 days is exactly 157.5h
  2. Type Safety: Dates are TimePoints, never bare strings, past the decode boundary

USAGE:
  perDay := generic.NewAmount(7.5, generic.UnitHours)
  month := perDay.Mul(decimal.NewFromInt(21))

SEE ALSO:
  - time.go: TimePoint and month/year helpers
  - store.go: BlobStore contract
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }

// String renders the value without trailing zeros, e.g. "7.5".
func (a Amount) String() string { return a.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// Username identifies an account and keys its ledger blob.
type Username string

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Validate rejects names that cannot be used as a path segment.
func (u Username) Validate() error {
	if !usernamePattern.MatchString(string(u)) || u == "." || u == ".." {
		return &ValidationErrorDetail{Code: "invalid_username", Message: "username must match [A-Za-z0-9._-]{1,64}"}
	}
	return nil
}
