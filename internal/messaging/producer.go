package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ecommers/orderflow/internal/domain"
)

// EventTypeHeader names the event a message carries.
const EventTypeHeader = "event-type"

const orderPlacedEventType = "OrderPlaced"

var producerTracer = otel.Tracer("messaging/producer")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEventProducer publishes order.placed events keyed by order id. The
// hash balancer keeps every event of one order on one partition.
type OrderEventProducer struct {
	writer messageWriter
	topic  string
}

func NewOrderEventProducer(brokers []string) *OrderEventProducer {
	return &OrderEventProducer{
		topic: domain.OrderPlacedTopic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  domain.OrderPlacedTopic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

func (p *OrderEventProducer) PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	if event.OrderID == "" {
		return errors.New("order placed event has no order id")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(event.OrderID),
		Value:   value,
		Time:    event.Timestamp,
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte(orderPlacedEventType)}},
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(event.OrderID),
			semconv.MessagingMessageBodySize(len(value)),
			attribute.Int("order.line_items", len(event.Items)),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&msg))

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish order %s: %w", event.OrderID, err)
	}

	return nil
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}
