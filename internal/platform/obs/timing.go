package obs

import (
	"context"
	"time"

	"field-route-service/internal/platform/metrics"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// RequestID returns the request id stored by the HTTP middleware, if any.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(RequestIDKey).(string)
	return reqID
}

// WithRequestID stores a request id for downstream log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Log returns the process logger annotated with the request id carried by ctx.
func Log(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logrus.StandardLogger())
	if reqID := RequestID(ctx); reqID != "" {
		entry = entry.WithField("req_id", reqID)
	}
	return entry
}

// Time logs the duration of an operation when the returned func is deferred:
//
//	defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		dur := time.Since(start)
		entry := Log(ctx).WithFields(logrus.Fields{"op": name, "dur_ms": dur.Milliseconds()})

		if errp != nil && *errp != nil {
			metrics.OpDuration.WithLabelValues(name, "error").Observe(dur.Seconds())
			entry.WithError(*errp).Warn("operation failed")
			return
		}
		metrics.OpDuration.WithLabelValues(name, "ok").Observe(dur.Seconds())
		entry.Debug("operation completed")
	}
}
