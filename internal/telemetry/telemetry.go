// Package telemetry provides tracing helpers for transcript operations. The
// global tracer provider is used as configured by the host process; with no
// provider installed the spans are no-ops.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func tracer() trace.Tracer {
	return otel.Tracer("claudia")
}

// StartFetch begins a span covering a transcript snapshot fetch.
func StartFetch(ctx context.Context, runID string) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "transcript.fetch")
	span.SetAttributes(attribute.String("run.id", runID))
	return ctx, span
}

// StartMerge begins a span covering a snapshot-plus-buffer merge.
func StartMerge(ctx context.Context, runID string) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "transcript.merge")
	span.SetAttributes(attribute.String("run.id", runID))
	return ctx, span
}

// StartExport begins a span covering an export rendering.
func StartExport(ctx context.Context, runID, format string) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "transcript.export")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("export.format", format),
	)
	return ctx, span
}

// StartRun begins a span covering a run start request.
func StartRun(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "run.start")
	span.SetAttributes(attribute.String("run.name", name))
	return ctx, span
}

// End closes a span, recording the error if one occurred.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
