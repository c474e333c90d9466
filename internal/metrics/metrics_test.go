package metrics

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"photogallery/internal/config"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestRecorderCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec, err := NewRecorder(provider)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	ctx := context.Background()
	rec.PhotoUploaded(ctx, "local", 100)
	rec.PhotoUploaded(ctx, "local", 50)
	rec.UploadFailed(ctx, "store")
	rec.PartSkipped(ctx)
	rec.PartSkipped(ctx)
	rec.PhotoDeleted(ctx, "local")

	totals := collect(t, reader)
	want := map[string]int64{
		"gallery.photos.uploaded":        2,
		"gallery.photos.uploaded_bytes":  150,
		"gallery.photos.upload_failures": 1,
		"gallery.photos.skipped":         2,
		"gallery.photos.deleted":         1,
	}
	for name, v := range want {
		if totals[name] != v {
			t.Errorf("%s = %d, want %d", name, totals[name], v)
		}
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	ctx := context.Background()
	rec.PhotoUploaded(ctx, "local", 1)
	rec.UploadFailed(ctx, "store")
	rec.PartSkipped(ctx)
	rec.PhotoDeleted(ctx, "local")
}

func TestNoopProviderWithoutEndpoint(t *testing.T) {
	provider, shutdown, err := NewMeterProvider(context.Background(), config.TelemetryConfig{})
	if err != nil {
		t.Fatalf("NewMeterProvider: %v", err)
	}
	if _, err := NewRecorder(provider); err != nil {
		t.Fatalf("NewRecorder on noop provider: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
