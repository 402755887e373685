// Package logger provides structured logging setup for taskalign.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/Strob0t/taskalign/internal/config"
)

const asyncWorkers = 2

// Option customises the logger built by New.
type Option func(*options)

type options struct {
	redactor Redactor
}

// WithRedactor masks the redactor's secrets in every record.
func WithRedactor(r Redactor) Option {
	return func(o *options) { o.redactor = r }
}

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// The returned Closer flushes the async buffer and must be called on shutdown.
func New(cfg config.Logging, opts ...Option) (*slog.Logger, Closer) {
	return NewWithWriter(cfg, os.Stdout, opts...)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(cfg config.Logging, w io.Writer, opts ...Option) (*slog.Logger, Closer) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	if o.redactor != nil {
		handler = &redactHandler{inner: handler, r: o.redactor}
	}
	var closer Closer = nopCloser{}
	if cfg.Async {
		size := cfg.AsyncBuffer
		if size <= 0 {
			size = 4096
		}
		ah := NewAsyncHandler(handler, size, asyncWorkers)
		handler, closer = ah, ah
	}
	handler = &contextHandler{inner: handler}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler adds request_id, repository and trace_id from the
// record's context.
// It wraps AsyncHandler so the attributes are resolved before the record
// is queued and its context is lost.
type contextHandler struct {
	inner slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if id := RequestID(ctx); id != "" {
		rec.AddAttrs(slog.String("request_id", id))
	}
	if repo := Repository(ctx); repo != "" {
		rec.AddAttrs(slog.String("repository", repo))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		rec.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	return h.inner.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name)}
}
