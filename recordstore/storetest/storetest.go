// Package storetest is the behaviour every generic.BlobStore must show.
// Backend tests call Run with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/generic"
)

// Run executes the conformance suite.
func Run(t *testing.T, newStore func(t *testing.T) generic.BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get absent is NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "ledgers/nobody.json")
		assert.ErrorIs(t, err, generic.ErrNotFound)
		assert.False(t, errors.Is(err, generic.ErrUnavailable))
	})

	t.Run("create then read back", func(t *testing.T) {
		s := newStore(t)
		v, err := s.Put(ctx, "ledgers/ana.json", []byte(`{"total_days":22}`), "")
		require.NoError(t, err)
		require.NotEmpty(t, v)

		blob, err := s.Get(ctx, "ledgers/ana.json")
		require.NoError(t, err)
		assert.Equal(t, "ledgers/ana.json", blob.Path)
		assert.JSONEq(t, `{"total_days":22}`, string(blob.Content))
		assert.Equal(t, v, blob.Version)
	})

	t.Run("create over existing is Conflict", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Put(ctx, "accounts.json", []byte(`{}`), "")
		require.NoError(t, err)

		_, err = s.Put(ctx, "accounts.json", []byte(`{"x":1}`), "")
		assert.ErrorIs(t, err, generic.ErrConflict)
	})

	t.Run("stale version is Conflict", func(t *testing.T) {
		// GIVEN: Two sessions read the same version
		s := newStore(t)
		v1, err := s.Put(ctx, "ledgers/ana.json", []byte(`{"n":1}`), "")
		require.NoError(t, err)

		// WHEN: The first writes, then the second writes with the old version
		v2, err := s.Put(ctx, "ledgers/ana.json", []byte(`{"n":2}`), v1)
		require.NoError(t, err)
		assert.NotEqual(t, v1, v2)

		_, err = s.Put(ctx, "ledgers/ana.json", []byte(`{"n":3}`), v1)

		// THEN: The second write is rejected and the first survives
		assert.ErrorIs(t, err, generic.ErrConflict)
		blob, err := s.Get(ctx, "ledgers/ana.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":2}`, string(blob.Content))
		assert.Equal(t, v2, blob.Version)
	})

	t.Run("update absent with version is Conflict", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Put(ctx, "ledgers/ghost.json", []byte(`{}`), "some-version")
		assert.ErrorIs(t, err, generic.ErrConflict)
	})
}
