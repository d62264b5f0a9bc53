package recordstore

import (
	"context"
	"errors"

	"github.com/warp/leave-register/generic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/warp/leave-register/recordstore"

var (
	attrPath    = attribute.Key("blob.path")
	attrVersion = attribute.Key("blob.version")
	attrOutcome = attribute.Key("blob.outcome")
)

type tracingStore struct {
	next   generic.BlobStore
	tracer trace.Tracer
}

// WithTracing opens one span per store call on the global tracer provider.
// The global provider may be installed after the store is built.
func WithTracing(next generic.BlobStore) generic.BlobStore {
	return WithTracerProvider(next, otel.GetTracerProvider())
}

// WithTracerProvider is WithTracing on an explicit provider.
func WithTracerProvider(next generic.BlobStore, tp trace.TracerProvider) generic.BlobStore {
	return &tracingStore{next: next, tracer: tp.Tracer(tracerName)}
}

func (t *tracingStore) Get(ctx context.Context, path string) (generic.Blob, error) {
	ctx, span := t.tracer.Start(ctx, "blobstore.get", trace.WithAttributes(attrPath.String(path)))
	defer span.End()

	blob, err := t.next.Get(ctx, path)
	finish(span, err)
	if err == nil {
		span.SetAttributes(attrVersion.String(string(blob.Version)))
	}
	return blob, err
}

func (t *tracingStore) Put(ctx context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	ctx, span := t.tracer.Start(ctx, "blobstore.put", trace.WithAttributes(
		attrPath.String(path),
		attribute.String("blob.expected", string(expected)),
		attribute.Int("blob.size", len(content)),
	))
	defer span.End()

	v, err := t.next.Put(ctx, path, content, expected)
	finish(span, err)
	if err == nil {
		span.SetAttributes(attrVersion.String(string(v)))
	}
	return v, err
}

// finish tags the outcome. NotFound and Conflict are expected answers, not
// span errors.
func finish(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetAttributes(attrOutcome.String("ok"))
	case errors.Is(err, generic.ErrNotFound):
		span.SetAttributes(attrOutcome.String("not_found"))
	case errors.Is(err, generic.ErrConflict):
		span.SetAttributes(attrOutcome.String("conflict"))
	default:
		span.SetAttributes(attrOutcome.String("error"))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
