package tracer

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"reflex/internal/infra/config"
)

const tracerName = "reflex"

// Setup initializes OpenTelemetry tracing and returns a shutdown function.
// When cfg.Enabled is false, a noop TracerProvider is used (zero overhead).
// The stdout exporter writes to stderr: stdout carries rendered views.
func Setup(ctx context.Context, cfg config.TracerConfig) (func(context.Context) error, error) {
	return setup(ctx, cfg, os.Stderr)
}

func setup(_ context.Context, cfg config.TracerConfig, w io.Writer) (func(context.Context) error, error) {
	noopShutdown := func(context.Context) error { return nil }

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	case "noop", "":
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", tracerName))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Attribute keys recorded on dispatcher spans.
const (
	KeyModel     = attribute.Key("reflex.model")
	KeyRunID     = attribute.Key("reflex.run_id")
	KeySource    = attribute.Key("reflex.source")
	KeyIteration = attribute.Key("reflex.iteration")
	KeyState     = attribute.Key("reflex.state")
)

// StartSpan is a convenience helper to start a named span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// StartRun starts the span that covers one model run.
func StartRun(ctx context.Context, model, runID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "dispatcher.run", trace.WithAttributes(
		KeyModel.String(model),
		KeyRunID.String(runID),
	))
}

// StartApply starts the child span for one applied event. source is "input"
// or "message".
func StartApply(ctx context.Context, source string, iteration int) (context.Context, trace.Span) {
	return StartSpan(ctx, "dispatcher.apply", trace.WithAttributes(
		KeySource.String(source),
		KeyIteration.Int(iteration),
	))
}

// EndApply records the state the transition produced and ends span.
func EndApply(span trace.Span, state string) {
	span.SetAttributes(KeyState.String(state))
	span.End()
}

// End sets the span status from err and ends span.
func End(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		SetOK(span)
	}
	span.End()
}

// RecordError records an error on the span and sets error status.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK sets the span status to OK.
func SetOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
