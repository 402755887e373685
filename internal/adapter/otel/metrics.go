package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskalign"

// Metrics holds the alignment metric instruments.
type Metrics struct {
	Verifications    metric.Int64Counter
	Misalignments    metric.Int64Counter
	TasksAnalyzed    metric.Int64Counter
	UpstreamFailures metric.Int64Counter
	VerifyDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Verifications, err = meter.Int64Counter("taskalign.verifications",
		metric.WithDescription("Number of verification runs"))
	if err != nil {
		return nil, err
	}

	m.Misalignments, err = meter.Int64Counter("taskalign.misalignments",
		metric.WithDescription("Number of misaligned tasks reported"))
	if err != nil {
		return nil, err
	}

	m.TasksAnalyzed, err = meter.Int64Counter("taskalign.tasks_analyzed",
		metric.WithDescription("Number of tasks classified"))
	if err != nil {
		return nil, err
	}

	m.UpstreamFailures, err = meter.Int64Counter("taskalign.upstream.failures",
		metric.WithDescription("Upstream tracker/code-host calls that failed and were degraded"))
	if err != nil {
		return nil, err
	}

	m.VerifyDuration, err = meter.Float64Histogram("taskalign.verify.duration_seconds",
		metric.WithDescription("Verification duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordVerification records one finished verification run. A nil
// receiver is a no-op.
func (m *Metrics) RecordVerification(ctx context.Context, repository string, analyzed, misaligned int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("repository", repository))
	m.Verifications.Add(ctx, 1, attrs)
	m.TasksAnalyzed.Add(ctx, int64(analyzed), attrs)
	m.Misalignments.Add(ctx, int64(misaligned), attrs)
	m.VerifyDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordUpstreamFailure counts a degraded upstream call.
func (m *Metrics) RecordUpstreamFailure(ctx context.Context, upstream, operation string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("upstream", upstream),
		attribute.String("operation", operation),
	))
}
