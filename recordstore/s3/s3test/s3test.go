// Package s3test is an in-process S3 endpoint for tests. It serves path-style
// GetObject / PutObject with If-Match and If-None-Match and answers quoted
// ETags the way S3 does.
package s3test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/recordstore/s3"
)

// Bucket is the only bucket the fake knows.
const Bucket = "leave-bucket"

// Fake holds the objects.
type Fake struct {
	mu      sync.Mutex
	objects map[string]object
	writes  int
	status  int
}

type object struct {
	body []byte
	etag string
}

// NewServer starts a fake S3 endpoint closed at test cleanup.
func NewServer(t *testing.T) (*Fake, *httptest.Server) {
	t.Helper()
	f := &Fake{objects: make(map[string]object)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

// NewStore returns an s3.Store pointed at srv.
func NewStore(t *testing.T, srv *httptest.Server, prefix string) *s3.Store {
	t.Helper()
	s, err := s3.New(context.Background(), s3.Config{
		Bucket:    Bucket,
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		Prefix:    prefix,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return s
}

// Has reports whether key is stored.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// ETag returns the raw ETag header value of key.
func (f *Fake) ETag(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key].etag
}

// SetStatus makes every following request fail with status.
func (f *Fake) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		writeError(w, f.status, "ServiceUnavailable")
		return
	}

	prefix := "/" + Bucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)
	obj, exists := f.objects[key]

	switch r.Method {
	case http.MethodGet:
		if !exists {
			writeError(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("ETag", obj.etag)
		w.Header().Set("Content-Length", fmt.Sprint(len(obj.body)))
		w.WriteHeader(http.StatusOK)
		w.Write(obj.body)

	case http.MethodPut:
		if r.Header.Get("If-None-Match") == "*" && exists {
			writeError(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		if match := r.Header.Get("If-Match"); match != "" {
			if !exists {
				writeError(w, http.StatusNotFound, "NoSuchKey")
				return
			}
			if match != obj.etag {
				writeError(w, http.StatusPreconditionFailed, "PreconditionFailed")
				return
			}
		}
		body, _ := io.ReadAll(r.Body)
		f.writes++
		sum := md5.Sum([]byte(fmt.Sprintf("%d:%s", f.writes, body)))
		etag := `"` + hex.EncodeToString(sum[:]) + `"`
		f.objects[key] = object{body: body, etag: etag}
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)

	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}
