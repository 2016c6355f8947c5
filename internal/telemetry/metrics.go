package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	PipelineOperations metric.Int64Counter
	CacheLookups       metric.Int64Counter
	TokensUsed         metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("content-analysis-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pipelineOperations, err := meter.Int64Counter(
		"pipeline.operations.total",
		metric.WithDescription("Content pipeline operations by kind and outcome"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"cache.lookups.total",
		metric.WithDescription("Content cache lookups by outcome"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		PipelineOperations: pipelineOperations,
		CacheLookups:       cacheLookups,
		TokensUsed:         tokensUsed,
	}, nil
}

// RecordRequest records one served HTTP request.
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", status),
	)
	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordPipelineOp records one ingest/fetch/search operation.
func (m *Metrics) RecordPipelineOp(op string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.PipelineOperations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}
