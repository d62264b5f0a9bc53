package recordstore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/warp/leave-register/generic"
	"go.uber.org/zap"
)

// Retry bounds the retries of transient store failures.
type Retry struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetry is three attempts starting at 200ms.
var DefaultRetry = Retry{
	MaxTries:        3,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

type retryStore struct {
	next   generic.BlobStore
	cfg    Retry
	logger *zap.Logger
}

// WithRetry retries Get and Put on ErrUnavailable only. NotFound, Conflict
// and every other error return on the first attempt.
func WithRetry(next generic.BlobStore, cfg Retry, logger *zap.Logger) generic.BlobStore {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryStore{next: next, cfg: cfg, logger: logger}
}

func (r *retryStore) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		b.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		b.MaxInterval = r.cfg.MaxInterval
	}
	return b
}

func (r *retryStore) classify(op, path string, attempt *int, err error) error {
	*attempt++
	if generic.IsRetryable(err) {
		r.logger.Warn("store call failed, retrying",
			zap.String("op", op),
			zap.String("path", path),
			zap.Int("attempt", *attempt),
			zap.Error(err))
		return err
	}
	return backoff.Permanent(err)
}

func (r *retryStore) Get(ctx context.Context, path string) (generic.Blob, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (generic.Blob, error) {
		blob, err := r.next.Get(ctx, path)
		if err != nil {
			return generic.Blob{}, r.classify("get", path, &attempt, err)
		}
		return blob, nil
	}, backoff.WithBackOff(r.policy()), backoff.WithMaxTries(r.cfg.MaxTries))
}

// Put is safe to retry: a write that landed but whose response was lost
// fails the retry with ErrConflict instead of writing twice.
func (r *retryStore) Put(ctx context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (generic.Version, error) {
		v, err := r.next.Put(ctx, path, content, expected)
		if err != nil {
			return "", r.classify("put", path, &attempt, err)
		}
		return v, nil
	}, backoff.WithBackOff(r.policy()), backoff.WithMaxTries(r.cfg.MaxTries))
}
