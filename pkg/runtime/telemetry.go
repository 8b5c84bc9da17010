package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/architeacher/criteria/pkg/config"
	"github.com/architeacher/criteria/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	exporterTypeNone   = "none"
	exporterTypeStdOut = "stdout"

	meterName = "github.com/architeacher/criteria"
)

var metricDescriptors = map[string]metrics.Descriptor{
	"queries.select.success":  {Description: "Statements rendered", Unit: "{statement}"},
	"queries.select.failure":  {Description: "Statements that failed to render", Unit: "{statement}"},
	"queries.select.duration": {Description: "Time spent rendering a statement", Unit: "s"},
	"cache.select.hit":        {Description: "Statements served from the cache", Unit: "{statement}"},
	"cache.select.miss":       {Description: "Statements rendered after a cache miss", Unit: "{statement}"},
	"cache.select.error":      {Description: "Statement cache failures", Unit: "{statement}"},
	"cache.select.bypass":     {Description: "Statements rendered without a usable cache key", Unit: "{statement}"},
}

func newResource(appConfig config.App, telemetryConfig config.Telemetry) (*resource.Resource, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(telemetryConfig.ServiceName),
			semconv.ServiceVersion(appConfig.ServiceVersion),
			attribute.String("env", appConfig.Environment),
			attribute.String("commit_sha", appConfig.CommitSHA),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	return res, nil
}

// newTracerProvider samples by trace id ratio. Spans are only exported when an
// exporter is configured; otherwise they still carry ids into the logs.
func newTracerProvider(
	res *resource.Resource,
	tracesConfig config.Traces,
	w io.Writer,
) (trace.TracerProvider, func(context.Context) error, error) {
	sampler := sdktrace.TraceIDRatioBased(tracesConfig.SamplerRatio)
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}

	switch strings.ToLower(tracesConfig.Exporter) {
	case exporterTypeNone, "":
	case exporterTypeStdOut:
		if w == nil {
			w = os.Stdout
		}

		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create an StdOut trace exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithSyncer(exporter))
	default:
		return nil, nil, fmt.Errorf("unsupported exporter type %q", tracesConfig.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)

	return tp, tp.Shutdown, nil
}

// NewNoopTracerProvider creates a no-op tracer provider for when tracing is disabled.
func NewNoopTracerProvider() trace.TracerProvider {
	return noop.NewTracerProvider()
}

func newMetricsClient(res *resource.Resource, reader sdkmetric.Reader) *metrics.OTelClient {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	provider := sdkmetric.NewMeterProvider(opts...)

	return metrics.NewOTelClient(provider.Meter(meterName), metricDescriptors, provider.Shutdown)
}
