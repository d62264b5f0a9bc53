package backend_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/config"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/recordstore/backend"
	"github.com/warp/leave-register/recordstore/storetest"
	"go.uber.org/zap"
)

func open(t *testing.T, cfg config.StoreConfig) generic.BlobStore {
	t.Helper()
	o, err := backend.Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o.Store
}

func TestOpen_Memory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.BlobStore {
		return open(t, config.StoreConfig{Backend: config.BackendMemory})
	})
}

func TestOpen_SQLite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.BlobStore {
		return open(t, config.StoreConfig{
			Backend: config.BackendSQLite,
			SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "leave.db")},
			Retry:   config.RetryConfig{MaxTries: 2},
		})
	})
}

func TestOpen_Errors(t *testing.T) {
	_, err := backend.Open(context.Background(), config.StoreConfig{Backend: "ftp"}, nil)
	assert.Error(t, err)

	_, err = backend.Open(context.Background(), config.StoreConfig{Backend: config.BackendGitHub}, nil)
	assert.Error(t, err)

	_, err = backend.Open(context.Background(), config.StoreConfig{Backend: config.BackendS3}, nil)
	assert.Error(t, err)
}
