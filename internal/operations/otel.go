package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"zipcsv/internal/infrastructure"
)

const (
	TracerName = "zipcsv.pipeline"
)

// PipelineTracer provides OpenTelemetry instrumentation for pipeline runs
type PipelineTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewPipelineTracer creates a tracer on providers, or on the global
// providers when providers is nil.
func NewPipelineTracer(providers *infrastructure.OTelProviders) (*PipelineTracer, error) {
	tracer := otel.Tracer(TracerName)
	meter := otel.Meter(TracerName)
	if providers != nil {
		if providers.Tracer != nil {
			tracer = providers.Tracer
		}
		if providers.Meter != nil {
			meter = providers.Meter
		}
	}

	metrics, err := infrastructure.CreatePipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &PipelineTracer{
		tracer:  tracer,
		metrics: metrics,
	}, nil
}

// TraceRun creates the root span of a run
func (pt *PipelineTracer) TraceRun(ctx context.Context, jobName, locator string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.job_name", jobName),
			attribute.String("pipeline.input", locator),
			attribute.String("pipeline.trace_id", infrastructure.GetTraceID(ctx)),
		),
	)
}

// RecordRunCompletion closes out the run span and records the duration
func (pt *PipelineTracer) RecordRunCompletion(ctx context.Context, span trace.Span, summary RunSummary, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("pipeline.status", status),
		attribute.Int("pipeline.partitions", summary.Partitions),
		attribute.Int64("pipeline.records", summary.Records),
		attribute.Float64("pipeline.duration_seconds", summary.Duration.Seconds()),
	)

	pt.metrics.RunDuration.Record(ctx, summary.Duration.Seconds(),
		metric.WithAttributes(attribute.String("status", status)))

	if err != nil {
		infrastructure.RecordError(ctx, err,
			trace.WithAttributes(attribute.String("error.type", string(GetErrorType(err)))))
		return
	}
	span.SetStatus(codes.Ok, "run completed")
}

// TraceDiscovery creates a span for partition discovery
func (pt *PipelineTracer) TraceDiscovery(ctx context.Context) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.discover")
}

// RecordDiscovery records the discovery outcome
func (pt *PipelineTracer) RecordDiscovery(ctx context.Context, span trace.Span, count int, err error) {
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}
	span.SetAttributes(attribute.Int("pipeline.partitions", count))
	pt.metrics.PartitionsDiscovered.Add(ctx, int64(count))
}

// TracePartition creates a span for one partition
func (pt *PipelineTracer) TracePartition(ctx context.Context, path string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.partition",
		trace.WithAttributes(attribute.String("partition.path", path)))
}

// RecordPartitionCompletion records a drained or failed partition
func (pt *PipelineTracer) RecordPartitionCompletion(ctx context.Context, span trace.Span, path string, records int64, duration time.Duration, err error) {
	span.SetAttributes(
		attribute.Int64("partition.records", records),
		attribute.Float64("partition.duration_seconds", duration.Seconds()),
	)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}

	pt.metrics.PartitionsProcessed.Add(ctx, 1)
	infrastructure.AddSpanEvent(ctx, "partition.completed", map[string]interface{}{
		"path":    path,
		"records": records,
	})
	span.SetStatus(codes.Ok, "partition drained")
}

// RecordRead counts one parsed record
func (pt *PipelineTracer) RecordRead(ctx context.Context) {
	pt.metrics.RecordsRead.Add(ctx, 1)
}

// RecordWritten counts n written records
func (pt *PipelineTracer) RecordWritten(ctx context.Context, n int64) {
	pt.metrics.RecordsWritten.Add(ctx, n)
}

// RecordRowError counts one malformed line
func (pt *PipelineTracer) RecordRowError(ctx context.Context, path string) {
	pt.metrics.RowErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("partition", path)))
}
