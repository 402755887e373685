package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskalign"

// StartVerifySpan starts the root span of a verification run.
func StartVerifySpan(ctx context.Context, repository, projectHint string, maxTasks int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "alignment.verify",
		trace.WithAttributes(
			attribute.String("alignment.repository", repository),
			attribute.String("alignment.project_hint", projectHint),
			attribute.Int("alignment.max_tasks", maxTasks),
		),
	)
}

// StartResolveSpan starts a span covering project resolution and task fetch.
func StartResolveSpan(ctx context.Context, projectHint string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "alignment.resolve",
		trace.WithAttributes(attribute.String("alignment.project_hint", projectHint)),
	)
}

// StartCollectSpan starts a span covering repository history fetch and matching.
func StartCollectSpan(ctx context.Context, repository string, tasks int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "alignment.collect",
		trace.WithAttributes(
			attribute.String("alignment.repository", repository),
			attribute.Int("alignment.tasks", tasks),
		),
	)
}

// EndSpan records err (if any) on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
