// Package observability provides OpenTelemetry-backed emitters for retry
// events.
package observability

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// OTelEmitter implements domain.EventEmitter using OpenTelemetry.
// Emission never fails: instrument errors are logged and dropped.
type OTelEmitter struct {
	tracer trace.Tracer
	logger *slog.Logger

	retryCounter     metric.Int64Counter
	exhaustedCounter metric.Int64Counter
}

// NewOTelEmitter creates an emitter recording retry metrics and span events.
func NewOTelEmitter(tracer trace.Tracer, meter metric.Meter, logger *slog.Logger) (*OTelEmitter, error) {
	retryCounter, err := meter.Int64Counter(
		"retry_attempts_total",
		metric.WithDescription("Total number of retry attempts"),
	)
	if err != nil {
		return nil, err
	}

	exhaustedCounter, err := meter.Int64Counter(
		"retry_exhausted_total",
		metric.WithDescription("Total number of retry sequences that exhausted their budget"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelEmitter{
		tracer:           tracer,
		logger:           logger,
		retryCounter:     retryCounter,
		exhaustedCounter: exhaustedCounter,
	}, nil
}

// EmitRetry records the event on the current span and increments counters.
func (o *OTelEmitter) EmitRetry(ctx context.Context, event domain.RetryEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("retry.service", event.Service),
		attribute.Int("retry.attempt", event.Attempt),
		attribute.Int("retry.max_attempts", event.MaxAttempts),
		attribute.String("retry.correlation_id", event.CorrelationID),
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("retry", trace.WithAttributes(attrs...))
	}

	o.retryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", event.Service),
	))
	if event.Exhausted {
		o.exhaustedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("service", event.Service),
		))
	}
}

// LogEmitter implements domain.EventEmitter on a structured logger alone,
// for environments without an OTLP endpoint.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a log-only emitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// EmitRetry logs the event.
func (l *LogEmitter) EmitRetry(ctx context.Context, event domain.RetryEvent) {
	l.logger.InfoContext(ctx, "retry event",
		slog.String("service", event.Service),
		slog.Int("attempt", event.Attempt),
		slog.Int("max_attempts", event.MaxAttempts),
		slog.Duration("delay", event.Delay),
		slog.Bool("exhausted", event.Exhausted),
		slog.String("correlation_id", event.CorrelationID))
}

// The process-wide default emitter, analogous to slog.SetDefault. It starts
// as nil so emission is a no-op until the service wires one.
var defaultEmitter atomic.Value // of emitterBox

type emitterBox struct{ emitter domain.EventEmitter }

// SetDefault installs emitter as the process-wide default used by components
// that are not handed one explicitly.
func SetDefault(emitter domain.EventEmitter) {
	defaultEmitter.Store(emitterBox{emitter: emitter})
}

// Default returns the process-wide default emitter, or nil when none is set.
func Default() domain.EventEmitter {
	box, ok := defaultEmitter.Load().(emitterBox)
	if !ok {
		return nil
	}
	return box.emitter
}
