/*
Package account is the user directory.

PURPOSE:
  Registration, credential checks and profile edits over ONE shared blob
  (accounts.json) that maps username -> record. Every mutation is a
  read-modify-conditional-write of that blob; a concurrent registration
  elsewhere surfaces as ErrConflict and the caller retries the whole
  operation.

PASSWORDS:
  New hashes are bcrypt. Older directories hold unsalted SHA-256 hex digests,
  some of them as a bare string instead of a record:

    {"ana": "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"}

  Both still verify. A legacy hash is replaced by bcrypt the next time the
  password is set.

SEE ALSO:
  - recordstore/recordstore.go: AccountsPath
  - timeoff/service.go: Calls Register / Verify at the session boundary
*/
package account

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/ledger"
	"github.com/warp/leave-register/recordstore"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Password bounds enforced on Register and SetPassword. bcrypt refuses input
// longer than 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// Record is one account.
type Record struct {
	Username     generic.Username `json:"username"`
	PasswordHash string           `json:"password_hash"`
	FullName     string           `json:"full_name,omitempty"`
	NationalID   string           `json:"national_id,omitempty"`
	Workplace    string           `json:"workplace,omitempty"`
	Company      string           `json:"company,omitempty"`
	CreatedAt    time.Time        `json:"created_at,omitzero"`
}

// Profile returns the descriptive fields as a ledger profile.
func (r Record) Profile() ledger.Profile {
	return ledger.Profile{FullName: r.FullName, NationalID: r.NationalID, Workplace: r.Workplace, Company: r.Company}
}

// LegacyHash reports whether the password is still an unsalted SHA-256.
func (r Record) LegacyHash() bool {
	return !strings.HasPrefix(r.PasswordHash, "$2")
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory reads and writes the account blob.
type Directory struct {
	store  generic.BlobStore
	logger *zap.Logger
	cost   int
	now    func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithBcryptCost overrides bcrypt.DefaultCost, e.g. bcrypt.MinCost in tests.
func WithBcryptCost(cost int) Option { return func(d *Directory) { d.cost = cost } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(d *Directory) { d.now = now } }

// NewDirectory creates a directory on store.
func NewDirectory(store generic.BlobStore, logger *zap.Logger, opts ...Option) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Directory{store: store, logger: logger, cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// load returns the directory and its version. A missing blob is an empty
// directory with version "".
func (d *Directory) load(ctx context.Context) (map[generic.Username]Record, generic.Version, error) {
	blob, err := d.store.Get(ctx, recordstore.AccountsPath)
	if errors.Is(err, generic.ErrNotFound) {
		return map[generic.Username]Record{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	records, err := decodeDirectory(blob.Content)
	if err != nil {
		return nil, "", err
	}
	return records, blob.Version, nil
}

func (d *Directory) save(ctx context.Context, records map[generic.Username]Record, expected generic.Version) error {
	_, err := recordstore.PutJSON(ctx, d.store, recordstore.AccountsPath, records, expected)
	return err
}

// Register creates an account.
func (d *Directory) Register(ctx context.Context, username generic.Username, password string, profile ledger.Profile) (Record, error) {
	if err := username.Validate(); err != nil {
		return Record{}, err
	}
	if err := validatePassword(password); err != nil {
		return Record{}, err
	}

	records, version, err := d.load(ctx)
	if err != nil {
		return Record{}, err
	}
	if _, taken := records[username]; taken {
		return Record{}, fmt.Errorf("%w: %s", generic.ErrAccountExists, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return Record{}, fmt.Errorf("failed to hash password: %w", err)
	}
	rec := Record{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     profile.FullName,
		NationalID:   profile.NationalID,
		Workplace:    profile.Workplace,
		Company:      profile.Company,
		CreatedAt:    d.now().UTC(),
	}
	records[username] = rec

	if err := d.save(ctx, records, version); err != nil {
		return Record{}, err
	}
	d.logger.Info("account registered", zap.String("user", string(username)))
	return rec, nil
}

// Remove deletes an account. Removing an unknown user is a no-op.
func (d *Directory) Remove(ctx context.Context, username generic.Username) error {
	records, version, err := d.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := records[username]; !ok {
		return nil
	}
	delete(records, username)
	if err := d.save(ctx, records, version); err != nil {
		return err
	}
	d.logger.Info("account removed", zap.String("user", string(username)))
	return nil
}

// Get returns one account.
func (d *Directory) Get(ctx context.Context, username generic.Username) (Record, error) {
	records, _, err := d.load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := records[username]
	if !ok {
		return Record{}, fmt.Errorf("account %s: %w", username, generic.ErrNotFound)
	}
	return rec, nil
}

// Verify checks a password. Unknown users and wrong passwords give the same
// ErrInvalidCredentials.
func (d *Directory) Verify(ctx context.Context, username generic.Username, password string) (Record, error) {
	records, _, err := d.load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := records[username]
	if !ok || !checkPassword(rec.PasswordHash, password) {
		return Record{}, generic.ErrInvalidCredentials
	}
	if rec.LegacyHash() {
		d.logger.Warn("account still on legacy password hash", zap.String("user", string(username)))
	}
	return rec, nil
}

// SetPassword replaces the password hash with a fresh bcrypt hash.
func (d *Directory) SetPassword(ctx context.Context, username generic.Username, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return d.update(ctx, username, func(r *Record) { r.PasswordHash = string(hash) })
}

// UpdateProfile replaces the descriptive fields.
func (d *Directory) UpdateProfile(ctx context.Context, username generic.Username, p ledger.Profile) (Record, error) {
	var out Record
	err := d.update(ctx, username, func(r *Record) {
		r.FullName, r.NationalID, r.Workplace, r.Company = p.FullName, p.NationalID, p.Workplace, p.Company
		out = *r
	})
	return out, err
}

func (d *Directory) update(ctx context.Context, username generic.Username, mutate func(*Record)) error {
	records, version, err := d.load(ctx)
	if err != nil {
		return err
	}
	rec, ok := records[username]
	if !ok {
		return fmt.Errorf("account %s: %w", username, generic.ErrNotFound)
	}
	mutate(&rec)
	records[username] = rec
	return d.save(ctx, records, version)
}

// =============================================================================
// HELPERS
// =============================================================================

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &generic.ValidationErrorDetail{
			Code:    "weak_password",
			Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
		}
	}
	if len(password) > MaxPasswordLength {
		return &generic.ValidationErrorDetail{
			Code:    "long_password",
			Message: fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength),
		}
	}
	return nil
}

func checkPassword(hash, password string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	sum := sha256.Sum256([]byte(password))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) == 1
}

// decodeDirectory accepts both record objects and legacy bare hashes.
func decodeDirectory(data []byte) (map[generic.Username]Record, error) {
	var raw map[generic.Username]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: account directory: %v", generic.ErrInvalidInput, err)
	}

	records := make(map[generic.Username]Record, len(raw))
	for name, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) > 0 && value[0] == '"' {
			var hash string
			if err := json.Unmarshal(value, &hash); err != nil {
				return nil, fmt.Errorf("%w: account %s: %v", generic.ErrInvalidInput, name, err)
			}
			records[name] = Record{Username: name, PasswordHash: hash}
			continue
		}
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil, fmt.Errorf("%w: account %s: %v", generic.ErrInvalidInput, name, err)
		}
		rec.Username = name
		records[name] = rec
	}
	return records, nil
}
