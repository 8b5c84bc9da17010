package decorator

import (
	"context"
	"fmt"
	"strings"

	"github.com/architeacher/criteria/pkg/logger"
	"github.com/architeacher/criteria/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Query  any
	Result any

	QueryHandler[Q Query, R Result] interface {
		Execute(ctx context.Context, query Q) (R, error)
	}

	// ActionNamer lets a query choose the name used in logs, spans and metric keys.
	ActionNamer interface {
		ActionName() string
	}
)

// ApplyQueryDecorators wraps handler so that logging sees the outcome of
// metrics and tracing, and tracing sits closest to the handler.
func ApplyQueryDecorators[Q Query, R Result](
	handler QueryHandler[Q, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) QueryHandler[Q, R] {
	return queryLoggingDecorator[Q, R]{
		base: queryMetricsDecorator[Q, R]{
			base: queryTracingDecorator[Q, R]{
				base:           handler,
				tracerProvider: tracerProvider,
			},
			client: metricsClient,
		},
		logger: log,
	}
}

func generateActionName(query any) string {
	if namer, ok := query.(ActionNamer); ok {
		return strings.ToLower(namer.ActionName())
	}

	name := fmt.Sprintf("%T", query)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}

	return strings.ToLower(strings.TrimPrefix(name, "*"))
}
