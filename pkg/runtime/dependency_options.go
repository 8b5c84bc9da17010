package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/architeacher/criteria/pkg/config"
	"github.com/architeacher/criteria/pkg/decorator"
	"github.com/architeacher/criteria/pkg/logger"
	"github.com/architeacher/criteria/pkg/metrics"
	"github.com/architeacher/criteria/pkg/metrics/noop"
	"github.com/architeacher/criteria/pkg/sqlcriteria"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	otelTrace "go.opentelemetry.io/otel/trace"
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithLogger(),
		WithTracing(ctx),
		WithMetrics(ctx),
		WithTranslator(),
		WithStatementCache(),
		WithSelectHandler(),
	}
}

// WithConfig loads the configuration from the environment.
func WithConfig() DependencyOption {
	return func(d *dependencies) error {
		if d.config != nil {
			return nil
		}

		cfg, err := config.Init()
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}

		d.config = cfg

		return nil
	}
}

func WithStaticConfig(cfg config.Config) DependencyOption {
	return func(d *dependencies) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validating configuration: %w", err)
		}

		d.config = &cfg

		return nil
	}
}

func WithLogger() DependencyOption {
	return func(d *dependencies) error {
		if d.infra.logger != nil {
			return nil
		}

		log := logger.New(d.config.Logging.Level, d.config.Logging.Format)
		d.infra.logger = &log

		return nil
	}
}

func WithStaticLogger(log logger.Logger) DependencyOption {
	return func(d *dependencies) error {
		d.infra.logger = &log

		return nil
	}
}

func WithTracing(_ context.Context) DependencyOption {
	return func(d *dependencies) error {
		if d.infra.tracerProvider != nil {
			return nil
		}

		if !d.config.Telemetry.Traces.Enabled {
			d.infra.tracerProvider = NewNoopTracerProvider()

			return nil
		}

		res, err := d.resource()
		if err != nil {
			return err
		}

		tp, shutdown, err := newTracerProvider(res, d.config.Telemetry.Traces, d.infra.spanWriter)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}

		d.infra.tracerProvider = tp
		d.infra.tracerShutdown = shutdown

		return nil
	}
}

// WithTracerProvider uses a provider owned by the caller, which stays
// responsible for shutting it down.
func WithTracerProvider(tp otelTrace.TracerProvider) DependencyOption {
	return func(d *dependencies) error {
		d.infra.tracerProvider = tp

		return nil
	}
}

// WithSpanWriter sends spans from the stdout exporter to w.
func WithSpanWriter(w io.Writer) DependencyOption {
	return func(d *dependencies) error {
		d.infra.spanWriter = w

		return nil
	}
}

func WithMetrics(_ context.Context) DependencyOption {
	return func(d *dependencies) error {
		if d.infra.metricsClient != nil {
			return nil
		}

		if !d.config.Telemetry.Metrics.Enabled && d.infra.metricReader == nil {
			d.infra.metricsClient = noop.NewMetricsClient()

			return nil
		}

		res, err := d.resource()
		if err != nil {
			return err
		}

		d.infra.metricsClient = newMetricsClient(res, d.infra.metricReader)

		return nil
	}
}

// WithMetricReader enables metrics and attaches reader to the meter
// provider, e.g. a periodic exporter or a manual reader in tests.
func WithMetricReader(reader sdkmetric.Reader) DependencyOption {
	return func(d *dependencies) error {
		d.infra.metricReader = reader

		return nil
	}
}

func WithMetricsClient(client metrics.Client) DependencyOption {
	return func(d *dependencies) error {
		d.infra.metricsClient = client

		return nil
	}
}

func WithTranslator() DependencyOption {
	return func(d *dependencies) error {
		if d.translator != nil {
			return nil
		}

		renderer := d.config.Renderer

		placeholder, err := sqlcriteria.ParsePlaceholder(renderer.Placeholder)
		if err != nil {
			return fmt.Errorf("initializing translator: %w", err)
		}

		d.translator = sqlcriteria.NewTranslator(
			d.infra.logger,
			sqlcriteria.WithPlaceholder(placeholder),
			sqlcriteria.WithColumns(renderer.Columns),
			sqlcriteria.WithStrictColumns(renderer.StrictColumns),
			sqlcriteria.WithBlankAsEmpty(renderer.BlankAsEmpty),
			sqlcriteria.WithCaseInsensitiveMatch(renderer.CaseInsensitive),
		)

		return nil
	}
}

func WithStatementCache() DependencyOption {
	return func(d *dependencies) error {
		if d.cache != nil || !d.config.Cache.Enabled {
			return nil
		}

		d.cache = sqlcriteria.NewStatementCache(d.config.Cache.Size, d.config.Cache.TTL)

		return nil
	}
}

func WithSelectHandler() DependencyOption {
	return func(d *dependencies) error {
		if d.handler != nil {
			return nil
		}

		var handler decorator.QueryHandler[sqlcriteria.Query, sqlcriteria.Statement] = sqlcriteria.NewSelectHandler(d.translator)

		if d.cache != nil {
			handler = decorator.NewQueryCachingDecorator[sqlcriteria.Query, sqlcriteria.Statement](
				handler,
				d.cache,
				decorator.CacheConfig{
					Enabled: d.config.Cache.Enabled,
					TTL:     d.config.Cache.TTL,
					Metrics: d.infra.metricsClient,
				},
			)
		}

		d.handler = decorator.ApplyQueryDecorators(
			handler,
			*d.infra.logger,
			d.infra.metricsClient,
			d.infra.tracerProvider,
		)

		return nil
	}
}

func (d *dependencies) resource() (*resource.Resource, error) {
	if d.infra.resource != nil {
		return d.infra.resource, nil
	}

	res, err := newResource(d.config.App, d.config.Telemetry)
	if err != nil {
		return nil, err
	}

	d.infra.resource = res

	return res, nil
}
