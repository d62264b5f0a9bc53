package recordstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/recordstore"
	"github.com/warp/leave-register/recordstore/memory"
	"github.com/warp/leave-register/recordstore/storetest"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// flakyStore fails the first n calls with the given error.
type flakyStore struct {
	generic.BlobStore
	failures int
	err      error
	calls    int
}

func (f *flakyStore) Get(ctx context.Context, path string) (generic.Blob, error) {
	f.calls++
	if f.calls <= f.failures {
		return generic.Blob{}, f.err
	}
	return f.BlobStore.Get(ctx, path)
}

func (f *flakyStore) Put(ctx context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return f.BlobStore.Put(ctx, path, content, expected)
}

var fastRetry = recordstore.Retry{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

// =============================================================================
// PATHS / JSON
// =============================================================================

func TestLedgerPath(t *testing.T) {
	p, err := recordstore.LedgerPath("ana.perez")
	require.NoError(t, err)
	assert.Equal(t, "ledgers/ana.perez.json", p)

	for _, bad := range []generic.Username{"", "..", "a/b", "ana perez"} {
		_, err := recordstore.LedgerPath(bad)
		assert.ErrorIs(t, err, generic.ErrInvalidInput, "username %q", bad)
	}
}

func TestGetPutJSON(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	v, err := recordstore.PutJSON(ctx, s, "doc.json", map[string]int{"n": 1}, "")
	require.NoError(t, err)

	var got map[string]int
	v2, err := recordstore.GetJSON(ctx, s, "doc.json", &got)
	require.NoError(t, err)
	assert.Equal(t, v, v2)
	assert.Equal(t, 1, got["n"])

	_, err = s.Put(ctx, "broken.json", []byte("{"), "")
	require.NoError(t, err)
	_, err = recordstore.GetJSON(ctx, s, "broken.json", &got)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// RETRY
// =============================================================================

func TestWithRetry_RetriesUnavailable(t *testing.T) {
	// GIVEN: A store that is down for two calls
	base := memory.New()
	_, err := base.Put(context.Background(), "a.json", []byte(`{}`), "")
	require.NoError(t, err)
	flaky := &flakyStore{BlobStore: base, failures: 2, err: generic.UnavailableError("get", "a.json", errors.New("timeout"))}

	// WHEN: Reading through the retry wrapper
	_, err = recordstore.WithRetry(flaky, fastRetry, nil).Get(context.Background(), "a.json")

	// THEN: The third attempt succeeds
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)
}

func TestWithRetry_GivesUpAfterMaxTries(t *testing.T) {
	flaky := &flakyStore{BlobStore: memory.New(), failures: 10, err: generic.UnavailableError("get", "a.json", errors.New("down"))}

	_, err := recordstore.WithRetry(flaky, fastRetry, nil).Get(context.Background(), "a.json")

	assert.ErrorIs(t, err, generic.ErrUnavailable)
	assert.Equal(t, 3, flaky.calls)
}

func TestWithRetry_NeverRetriesConflictOrNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"conflict", generic.StaleVersionError("a.json", "1"), generic.ErrConflict},
		{"not found", generic.NotFoundError("a.json"), generic.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flaky := &flakyStore{BlobStore: memory.New(), failures: 10, err: tt.err}
			_, err := recordstore.WithRetry(flaky, fastRetry, nil).Put(context.Background(), "a.json", []byte(`{}`), "1")

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, flaky.calls)
		})
	}
}

func TestWrappers_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.BlobStore {
		return recordstore.WithTracing(recordstore.WithRetry(memory.New(), fastRetry, nil))
	})
}

// =============================================================================
// TRACING
// =============================================================================

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]string {
	m := make(map[attribute.Key]string)
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value.Emit()
	}
	return m
}

func TestWithTracing_RecordsSpans(t *testing.T) {
	// GIVEN: A traced store on a recording provider
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	s := recordstore.WithTracerProvider(memory.New(), tp)
	ctx := context.Background()

	// WHEN: A create, a miss and a stale write
	v, err := s.Put(ctx, "ledgers/ana.json", []byte(`{"total_days":22}`), "")
	require.NoError(t, err)
	_, err = s.Get(ctx, "ledgers/bob.json")
	require.ErrorIs(t, err, generic.ErrNotFound)
	_, err = s.Put(ctx, "ledgers/ana.json", []byte(`{}`), "stale")
	require.ErrorIs(t, err, generic.ErrConflict)

	// THEN: One span per call, tagged with path, version and outcome
	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "blobstore.put", spans[0].Name())
	created := spanAttrs(spans[0])
	assert.Equal(t, "ledgers/ana.json", created["blob.path"])
	assert.Equal(t, string(v), created["blob.version"])
	assert.Equal(t, "ok", created["blob.outcome"])

	assert.Equal(t, "blobstore.get", spans[1].Name())
	assert.Equal(t, "not_found", spanAttrs(spans[1])["blob.outcome"])
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	assert.Equal(t, "conflict", spanAttrs(spans[2])["blob.outcome"])
	assert.Equal(t, "stale", spanAttrs(spans[2])["blob.expected"])
}

func TestWithTracing_StoreFailureIsSpanError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	down := &flakyStore{BlobStore: memory.New(), failures: 1, err: generic.UnavailableError("get", "accounts.json", errors.New("timeout"))}
	s := recordstore.WithTracerProvider(down, tp)

	_, err := s.Get(context.Background(), "accounts.json")
	require.ErrorIs(t, err, generic.ErrUnavailable)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "error", spanAttrs(spans[0])["blob.outcome"])
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
