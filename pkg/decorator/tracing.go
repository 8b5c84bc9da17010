package decorator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/architeacher/criteria/pkg/decorator"

type queryTracingDecorator[Q Query, R Result] struct {
	base           QueryHandler[Q, R]
	tracerProvider otelTrace.TracerProvider
}

func (d queryTracingDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	if d.tracerProvider == nil {
		return d.base.Execute(ctx, query)
	}

	actionName := generateActionName(query)

	ctx, span := d.tracerProvider.Tracer(tracerName).Start(ctx, "query."+actionName,
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
		otelTrace.WithAttributes(attribute.String("query.name", actionName)),
	)
	defer span.End()

	result, err := d.base.Execute(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return result, err
	}

	span.SetStatus(codes.Ok, "")

	return result, nil
}
