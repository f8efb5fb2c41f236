package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer follows the teacher's internal/agent/trace.go convention of a
// single package-level otel.Tracer("nexus/agent") handle, generalized to
// this runtime's tracer name. No SDK TracerProvider is constructed here —
// the core never configures exporters (§1 "external collaborators" scope);
// a process wiring one in via otel.SetTracerProvider gets these spans for
// free, and without one every span is the otel no-op implementation.
var tracer = otel.Tracer("agent/runtime")

// startIterationSpan opens a span around one Main Agent Loop iteration.
func startIterationSpan(ctx context.Context, iteration int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agent.loop.iteration", trace.WithAttributes(
		attribute.Int("agent.iteration", iteration),
	))
}

// startDispatchSpan opens a span around one tool dispatch.
func startDispatchSpan(ctx context.Context, toolName, executionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agent.tool.dispatch", trace.WithAttributes(
		attribute.String("agent.tool.name", toolName),
		attribute.String("agent.tool.execution_id", executionID),
	))
}

// endSpan closes span, marking it as an error span when err is non-nil,
// matching the teacher's tracer.go span.SetStatus(codes.Error, ...) pattern.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
