// Package redis stores blobs in Redis hashes. The version is a counter on
// the hash; the compare-and-set runs as one Lua script so no other client can
// interleave between the check and the write.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/warp/leave-register/generic"
)

// casScript writes a blob if its version matches.
// KEYS[1] = blob key
// ARGV[1] = content
// ARGV[2] = expected version ("" = must not exist)
// Returns {1, new_version} on success, {0, 0} on a failed precondition.
var casScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "version")
local expected = ARGV[2]

if expected == "" then
    if current then
        return {0, 0}
    end
elseif (not current) or current ~= expected then
    return {0, 0}
end

local next = redis.call("HINCRBY", KEYS[1], "version", 1)
redis.call("HSET", KEYS[1], "content", ARGV[1])
return {1, next}
`)

// Config locates the Redis server.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, e.g. "leave:"
}

// Store implements generic.BlobStore on Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a store. No connection is made until the first call.
func New(cfg Config) *Store {
	return NewFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Prefix)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(path string) string { return s.prefix + path }

// Get reads the blob hash.
func (s *Store) Get(ctx context.Context, path string) (generic.Blob, error) {
	vals, err := s.client.HMGet(ctx, s.key(path), "content", "version").Result()
	if err != nil {
		return generic.Blob{}, generic.UnavailableError("get", path, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return generic.Blob{}, generic.NotFoundError(path)
	}

	content, _ := vals[0].(string)
	version, _ := vals[1].(string)
	return generic.Blob{Path: path, Content: []byte(content), Version: generic.Version(version)}, nil
}

// Put runs the compare-and-set script.
func (s *Store) Put(ctx context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	res, err := casScript.Run(ctx, s.client, []string{s.key(path)}, content, string(expected)).Result()
	if err != nil {
		return "", generic.UnavailableError("put", path, err)
	}

	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		return "", generic.UnavailableError("put", path, fmt.Errorf("invalid response from cas script"))
	}
	applied, _ := results[0].(int64)
	if applied != 1 {
		return "", generic.StaleVersionError(path, expected)
	}
	next, _ := results[1].(int64)
	return generic.Version(strconv.FormatInt(next, 10)), nil
}
