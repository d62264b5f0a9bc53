// Package backend opens the configured record store.
//
// Every backend comes back wrapped as WithTracing(WithRetry(store)), so
// transient failures are retried and every call gets a span.
package backend

import (
	"context"
	"fmt"

	"github.com/warp/leave-register/config"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/recordstore"
	"github.com/warp/leave-register/recordstore/github"
	"github.com/warp/leave-register/recordstore/memory"
	"github.com/warp/leave-register/recordstore/redis"
	"github.com/warp/leave-register/recordstore/s3"
	"github.com/warp/leave-register/recordstore/sqlite"
	"go.uber.org/zap"
)

// Opened is a ready store and its cleanup.
type Opened struct {
	Store generic.BlobStore
	close func() error
}

// Close releases the backend's connections.
func (o *Opened) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// Open builds the store named by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Opened, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store   generic.BlobStore
		closeFn func() error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.New()

	case config.BackendSQLite:
		s, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		store, closeFn = s, s.Close

	case config.BackendGitHub:
		s, err := github.New(github.Config{
			APIURL:        cfg.GitHub.APIURL,
			Owner:         cfg.GitHub.Owner,
			Repo:          cfg.GitHub.Repo,
			Branch:        cfg.GitHub.Branch,
			Token:         cfg.GitHub.Token,
			RatePerSecond: cfg.GitHub.RatePerSecond,
			Logger:        logger.Named("github"),
		})
		if err != nil {
			return nil, err
		}
		store = s

	case config.BackendS3:
		s, err := s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		store = s

	case config.BackendRedis:
		s := redis.New(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err := s.Ping(ctx); err != nil {
			logger.Warn("redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		store, closeFn = s, s.Close

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	retry := cfg.Retry.Retry()
	if retry.MaxTries == 0 {
		retry = recordstore.DefaultRetry
	}
	logger.Info("record store opened", zap.String("backend", cfg.Backend))
	return &Opened{
		Store: recordstore.WithTracing(recordstore.WithRetry(store, retry, logger)),
		close: closeFn,
	}, nil
}
