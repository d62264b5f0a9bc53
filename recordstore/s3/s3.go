/*
Package s3 stores blobs as S3 objects using conditional writes.

VERSION TAG:
  The object's ETag without its surrounding quotes, so the version is the
  same opaque token on every backend. The quotes go back on for If-Match.

COMPARE-AND-SWAP:
  Create:  PutObject with If-None-Match: *
  Update:  PutObject with If-Match: <etag>
  S3 answers 412 PreconditionFailed (or 409 on a concurrent conditional
  write) when the precondition does not hold; both map to ErrConflict.

The SDK's own retryer is disabled: recordstore.WithRetry owns retries so a
conflict is never retried and transient failures are retried once policy.
*/
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/warp/leave-register/generic"
)

// Config holds configuration for Store.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // Optional custom endpoint (MinIO, LocalStack, tests)
	Prefix    string // Optional key prefix, e.g. "leave/"
	AccessKey string // Optional static credentials
	SecretKey string
}

// Store implements generic.BlobStore on an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New loads the AWS configuration and returns a store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 store needs a bucket", generic.ErrInvalidInput)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
		o.RetryMaxAttempts = 1
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *Store) key(path string) string { return s.prefix + path }

// =============================================================================
// BLOB STORE
// =============================================================================

// Get downloads the object at path.
func (s *Store) Get(ctx context.Context, path string) (generic.Blob, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return generic.Blob{}, generic.NotFoundError(path)
		}
		return generic.Blob{}, generic.UnavailableError("get", path, err)
	}
	defer func() { _ = result.Body.Close() }()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return generic.Blob{}, generic.UnavailableError("get", path, err)
	}
	return generic.Blob{Path: path, Content: content, Version: versionOf(result.ETag)}, nil
}

// Put uploads content with an If-None-Match or If-Match precondition.
func (s *Store) Put(ctx context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	}
	if expected == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(etagOf(expected))
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		// If-Match against a missing object is a 404: the version we hold is
		// as stale as it gets.
		if isPreconditionFailed(err) || (expected != "" && isNotFound(err)) {
			return "", generic.StaleVersionError(path, expected)
		}
		return "", generic.UnavailableError("put", path, err)
	}
	return versionOf(result.ETag), nil
}

func versionOf(etag *string) generic.Version {
	return generic.Version(strings.Trim(aws.ToString(etag), `"`))
}

func etagOf(v generic.Version) string {
	return `"` + strings.Trim(string(v), `"`) + `"`
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return httpStatus(err) == http.StatusNotFound
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	status := httpStatus(err)
	return status == http.StatusPreconditionFailed || status == http.StatusConflict
}

func httpStatus(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
