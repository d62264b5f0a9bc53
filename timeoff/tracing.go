package timeoff

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/warp/leave-register/timeoff"

var (
	attrUser      = attribute.Key("leave.user")
	attrRequestID = attribute.Key("leave.request_id")
	attrVersion   = attribute.Key("ledger.version")
	attrUsedDays  = attribute.Key("ledger.used_days")
)

// WithTracerProvider sends the ledger spans to tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

func defaultTracer() trace.Tracer { return otel.Tracer(tracerName) }

func (s *Service) startSpan(ctx context.Context, name string, sess Session) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attrUser.String(string(sess.Username)),
		attrRequestID.String(sess.RequestID),
	))
}

// endSpan records err, if any, and ends the span. Conflicts are reported too:
// a caller that loses a race sees it on the trace.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
