package redis_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/recordstore/redis"
	"github.com/warp/leave-register/recordstore/storetest"
)

func redisAddr() string {
	if addr := os.Getenv("LEAVE_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// newTestStore requires a running Redis; the test is skipped otherwise.
// Every store gets its own key prefix.
func newTestStore(t *testing.T) *redis.Store {
	t.Helper()
	s := redis.New(redis.Config{Addr: redisAddr(), Prefix: "leave-test:" + uuid.NewString() + ":"})
	if err := s.Ping(context.Background()); err != nil {
		s.Close()
		t.Skip("Skipping Redis integration test: redis not available")
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedis_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.BlobStore { return newTestStore(t) })
}

func TestRedis_UnreachableIsUnavailable(t *testing.T) {
	s := redis.New(redis.Config{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { s.Close() })

	_, err := s.Get(context.Background(), "accounts.json")
	assert.ErrorIs(t, err, generic.ErrUnavailable)
	assert.False(t, errors.Is(err, generic.ErrNotFound))

	_, err = s.Put(context.Background(), "accounts.json", []byte(`{}`), "")
	assert.ErrorIs(t, err, generic.ErrUnavailable)
}
