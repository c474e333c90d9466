package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"photogallery/internal/config"
)

const meterName = "photogallery"

// NewMeterProvider exports over OTLP/HTTP when an endpoint is configured and
// falls back to a no-op provider otherwise. The returned shutdown func flushes
// pending data.
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig) (metric.MeterProvider, func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		return noop.NewMeterProvider(), func(context.Context) error { return nil }, nil
	}

	endpoint := cfg.OTLPEndpoint
	opts := []otlpmetrichttp.Option{}
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	opts = append(opts, otlpmetrichttp.WithEndpoint(strings.TrimSuffix(endpoint, "/")))

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)
	return provider, provider.Shutdown, nil
}

// Recorder counts gallery activity. A nil Recorder records nothing.
type Recorder struct {
	uploaded metric.Int64Counter
	bytes    metric.Int64Counter
	failed   metric.Int64Counter
	skipped  metric.Int64Counter
	deleted  metric.Int64Counter
}

func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(meterName)

	uploaded, err := meter.Int64Counter("gallery.photos.uploaded",
		metric.WithDescription("Photos stored and recorded"))
	if err != nil {
		return nil, err
	}
	bytes, err := meter.Int64Counter("gallery.photos.uploaded_bytes",
		metric.WithDescription("Payload bytes of stored photos"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("gallery.photos.upload_failures",
		metric.WithDescription("Files dropped from an upload batch"))
	if err != nil {
		return nil, err
	}
	skipped, err := meter.Int64Counter("gallery.photos.skipped",
		metric.WithDescription("Non-image parts ignored in an upload batch"))
	if err != nil {
		return nil, err
	}
	deleted, err := meter.Int64Counter("gallery.photos.deleted",
		metric.WithDescription("Photos deleted"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		uploaded: uploaded,
		bytes:    bytes,
		failed:   failed,
		skipped:  skipped,
		deleted:  deleted,
	}, nil
}

func (r *Recorder) PhotoUploaded(ctx context.Context, driver string, size int64) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("driver", driver))
	r.uploaded.Add(ctx, 1, attrs)
	r.bytes.Add(ctx, size, attrs)
}

func (r *Recorder) UploadFailed(ctx context.Context, stage string) {
	if r == nil {
		return
	}
	r.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (r *Recorder) PartSkipped(ctx context.Context) {
	if r == nil {
		return
	}
	r.skipped.Add(ctx, 1)
}

func (r *Recorder) PhotoDeleted(ctx context.Context, driver string) {
	if r == nil {
		return
	}
	r.deleted.Add(ctx, 1, metric.WithAttributes(attribute.String("driver", driver)))
}
