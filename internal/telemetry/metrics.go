package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestCounter   metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	CORSDecisions    metric.Int64Counter
	RateLimitRejects metric.Int64Counter
	HealthProbes     metric.Int64Counter
	NormalizedErrors metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(ServiceName)

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

	corsDecisions, err := meter.Int64Counter(
		"cors.decisions.total",
		metric.WithDescription("Origin policy decisions"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitRejects, err := meter.Int64Counter(
		"ratelimit.rejections.total",
		metric.WithDescription("Requests rejected by the rate limiter"),
	)
	if err != nil {
		return nil, err
	}

	healthProbes, err := meter.Int64Counter(
		"health.probes.total",
		metric.WithDescription("Persistence health probes"),
	)
	if err != nil {
		return nil, err
	}

	normalizedErrors, err := meter.Int64Counter(
		"http.errors.total",
		metric.WithDescription("Errors rendered by the error normalizer"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:   requestCounter,
		RequestDuration:  requestDuration,
		CORSDecisions:    corsDecisions,
		RateLimitRejects: rateLimitRejects,
		HealthProbes:     healthProbes,
		NormalizedErrors: normalizedErrors,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, route string, status int, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

func (m *Metrics) RecordCORSDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	m.CORSDecisions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Bool("cors.allowed", allowed),
		attribute.String("cors.reason", reason),
	))
}

func (m *Metrics) RecordRateLimitReject(route string) {
	if m == nil {
		return
	}
	m.RateLimitRejects.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("http.route", route),
	))
}

func (m *Metrics) RecordHealthProbe(dependency string, ok bool) {
	if m == nil {
		return
	}
	m.HealthProbes.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.Bool("ok", ok),
	))
}

func (m *Metrics) RecordError(status int, code string) {
	if m == nil {
		return
	}
	m.NormalizedErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Int("http.status_code", status),
		attribute.String("error.code", code),
	))
}
