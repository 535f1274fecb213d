package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tripmap/tripmap/internal/telemetry"

// ProviderMetrics records calls to upstream providers such as the itinerary model.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHit        metric.Int64Counter
	cacheMiss       metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments on the global meter.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHit:        cacheHit,
		cacheMiss:       cacheMiss,
	}, nil
}

func providerAttrs(provider, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
}

// RecordRequest records one provider request. A nil receiver records nothing.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := providerAttrs(provider, operation)
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Request contexts may already be canceled by the time the call returns.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	if m == nil {
		return
	}
	m.cacheHit.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// RecordCacheMiss records a cache miss.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	if m == nil {
		return
	}
	m.cacheMiss.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// SessionMetrics records viewer session activity.
type SessionMetrics struct {
	active      metric.Int64UpDownCounter
	activations metric.Int64Counter
}

// NewSessionMetrics creates the session instruments on the global meter.
func NewSessionMetrics() (*SessionMetrics, error) {
	meter := otel.Meter(meterName)

	active, err := meter.Int64UpDownCounter(
		"session.active",
		metric.WithDescription("Number of open viewer sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	activations, err := meter.Int64Counter(
		"session.activation.total",
		metric.WithDescription("Point activations by source and outcome"),
		metric.WithUnit("{activation}"),
	)
	if err != nil {
		return nil, err
	}

	return &SessionMetrics{active: active, activations: activations}, nil
}

// SessionOpened increments the open session gauge.
func (m *SessionMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.active.Add(context.Background(), 1)
}

// SessionClosed decrements the open session gauge.
func (m *SessionMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.active.Add(context.Background(), -1)
}

// Activation records an activation from source ("map" or "list") and whether it resolved.
func (m *SessionMetrics) Activation(source string, matched bool) {
	if m == nil {
		return
	}
	m.activations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("matched", matched),
	))
}
