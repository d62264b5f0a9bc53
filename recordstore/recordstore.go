/*
Package recordstore holds the helpers shared by every generic.BlobStore
backend: blob paths, JSON documents and the retry and tracing wrappers.

LAYOUT ON THE HOST:

	accounts.json              one shared account directory
	ledgers/<username>.json    one ledger per user

WRAPPING ORDER:

	store := recordstore.WithTracing(recordstore.WithRetry(backend, cfg))

Tracing outermost so one span covers all attempts.

SEE ALSO:
  - generic/store.go: BlobStore contract
  - memory, sqlite, github, s3, redis: Backends
*/
package recordstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/warp/leave-register/generic"
)

// AccountsPath is the blob holding every account record.
const AccountsPath = "accounts.json"

// LedgerPath is the blob holding one user's ledger.
func LedgerPath(username generic.Username) (string, error) {
	if err := username.Validate(); err != nil {
		return "", err
	}
	return "ledgers/" + string(username) + ".json", nil
}

// GetJSON reads the blob at path into v and returns its version.
func GetJSON(ctx context.Context, s generic.BlobStore, path string, v any) (generic.Version, error) {
	blob, err := s.Get(ctx, path)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(blob.Content, v); err != nil {
		return "", fmt.Errorf("%w: %s is not valid JSON: %v", generic.ErrInvalidInput, path, err)
	}
	return blob.Version, nil
}

// PutJSON writes v as indented JSON with the expected-version precondition.
func PutJSON(ctx context.Context, s generic.BlobStore, path string, v any, expected generic.Version) (generic.Version, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return s.Put(ctx, path, data, expected)
}
