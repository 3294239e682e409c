package orders

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("orders")

type orderMetrics struct {
	created  metric.Int64Counter
	rejected metric.Int64Counter
}

func newOrderMetrics() (*orderMetrics, error) {
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders accepted and persisted"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Order requests refused before persistence"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &orderMetrics{created: created, rejected: rejected}, nil
}

func (m *orderMetrics) recordCreated(ctx context.Context, lineItems int) {
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.Int("order.line_items", lineItems)))
}

func (m *orderMetrics) recordRejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
