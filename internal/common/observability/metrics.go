package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "mf-search-workers"

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider tracerShutdowner
	serviceName    string
}

// New wires the OpenTelemetry meter to the Prometheus registry. Tracing is
// enabled separately through EnableTracing.
func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{serviceName: serviceName}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return &Observability{
		meterProvider: provider,
		serviceName:   serviceName,
	}
}

// RecordJob counts one finished job and records its duration on the global
// meter provider. Instruments are looked up per call so a provider installed
// later is honoured.
func RecordJob(ctx context.Context, taskType, status string, duration time.Duration) {
	meter := otel.Meter(meterName)
	attrs := otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	)

	if counter, err := meter.Int64Counter(
		"fund_search.jobs.processed",
		otelmetric.WithDescription("Number of fund search jobs processed"),
	); err == nil {
		counter.Add(ctx, 1, attrs)
	}

	if hist, err := meter.Float64Histogram(
		"fund_search.jobs.duration",
		otelmetric.WithDescription("Fund search job processing duration"),
		otelmetric.WithUnit("ms"),
	); err == nil {
		hist.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
