/*
errors.go - Centralized error types for the leave register

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Store errors - NotFound / Conflict / Unavailable are three DIFFERENT things
  2. Validation errors - Bad dates, bad usernames, bad templates
  3. Account errors - Duplicate registration, wrong credentials

USAGE:
  Callers branch with errors.Is:

    blob, err := store.Get(ctx, path)
    switch {
    case errors.Is(err, generic.ErrNotFound):
        // first run, create
    case errors.Is(err, generic.ErrUnavailable):
        // host unreachable, DO NOT treat as empty
    }

SEE ALSO:
  - store.go: Uses these errors
  - recordstore/*: Maps host responses onto them
  - api/handlers.go: Maps them onto HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a blob or record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional write loses against another
	// writer. Never retried automatically; the caller merges or re-reads.
	ErrConflict = errors.New("version conflict")

	// ErrUnavailable is returned when the store cannot be reached or refuses
	// our credentials. It never means "absent".
	ErrUnavailable = errors.New("store unavailable")

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidTemplate is returned when a template or layout cannot be used.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrAccountExists is returned when registering a taken username.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidCredentials is returned when a password does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StoreError records which store operation failed on which path.
type StoreError struct {
	Op   string // "get" or "put"
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ConflictError provides details about a lost compare-and-swap.
type ConflictError struct {
	Path     string
	Expected Version // empty = caller expected the blob to be absent
}

func (e *ConflictError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("version conflict on %s: blob already exists", e.Path)
	}
	return fmt.Sprintf("version conflict on %s: expected version %s is stale", e.Path, e.Expected)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ValidationErrorDetail provides details about a validation failure.
type ValidationErrorDetail struct {
	Code    string // e.g., "invalid_username", "negative_entitlement"
	Message string
}

func (e *ValidationErrorDetail) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationErrorDetail) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError is the StoreError a backend returns for an absent blob.
func NotFoundError(path string) error {
	return &StoreError{Op: "get", Path: path, Err: ErrNotFound}
}

// StaleVersionError is the StoreError a backend returns for a failed
// precondition.
func StaleVersionError(path string, expected Version) error {
	return &StoreError{Op: "put", Path: path, Err: &ConflictError{Path: path, Expected: expected}}
}

// UnavailableError wraps a transport, auth or host failure.
func UnavailableError(op, path string, cause error) error {
	return &StoreError{Op: op, Path: path, Err: fmt.Errorf("%w: %v", ErrUnavailable, cause)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
// Conflicts are NOT retryable: retrying a stale write would clobber data.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidTemplate)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
