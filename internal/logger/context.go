package logger

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	repositoryKey
)

// WithRequestID stores the request ID used to correlate log lines, NATS
// messages and reports for one verification.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithRepository tags ctx with the repository under verification so every
// log line of that run carries it.
func WithRepository(ctx context.Context, repository string) context.Context {
	return context.WithValue(ctx, repositoryKey, repository)
}

// Repository returns the repository stored in ctx, or "".
func Repository(ctx context.Context) string {
	return stringValue(ctx, repositoryKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}
