package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/architeacher/criteria/pkg/config"
	"github.com/architeacher/criteria/pkg/decorator"
	"github.com/architeacher/criteria/pkg/logger"
	"github.com/architeacher/criteria/pkg/metrics"
	"github.com/architeacher/criteria/pkg/sqlcriteria"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	infrastructureDep struct {
		resource       *resource.Resource
		tracerProvider otelTrace.TracerProvider
		tracerShutdown func(ctx context.Context) error
		spanWriter     io.Writer
		metricReader   sdkmetric.Reader
		metricsClient  metrics.Client
		logger         *logger.Logger
	}

	dependencies struct {
		config     *config.Config
		infra      infrastructureDep
		translator *sqlcriteria.Translator
		cache      *sqlcriteria.StatementCache
		handler    decorator.QueryHandler[sqlcriteria.Query, sqlcriteria.Statement]
	}

	// DependencyOption fills one dependency. Options passed to New run before
	// the defaults, and every default leaves an already set dependency alone.
	DependencyOption func(*dependencies) error
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*dependencies, error) {
	deps := &dependencies{}

	allOpts := append(slices.Clone(opts), defaultOptions(ctx)...)

	for _, opt := range allOpts {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	return deps, nil
}

func (d *dependencies) shutdown(ctx context.Context) error {
	var errs []error

	if d.infra.metricsClient != nil {
		if err := d.infra.metricsClient.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down metrics: %w", err))
		}
	}

	if d.infra.tracerShutdown != nil {
		if err := d.infra.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer: %w", err))
		}
	}

	return errors.Join(errs...)
}
