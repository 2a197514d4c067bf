package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
	"github.com/goldenrabbit-press/orders-service/internal/middleware"
	"github.com/goldenrabbit-press/orders-service/internal/models"
)

// EventType represents the type of order event.
type EventType string

const (
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderConfirmed EventType = "order.confirmed"
	EventTypeOrderCancelled EventType = "order.cancelled"
)

// OrderEvent represents an order lifecycle event.
type OrderEvent struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	OrderNumber   string          `json:"order_number"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// KafkaPublisher publishes order events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	logger *logging.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		topic:  cfg.OrdersTopic,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order created event.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Publishing order created event", logging.Fields{
		"order_number": order.OrderNumber,
	})

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypeOrderCreated, order.OrderNumber, data)
	return p.publish(ctx, event)
}

// PublishOrderConfirmed publishes a payment settlement event.
func (p *KafkaPublisher) PublishOrderConfirmed(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Publishing order confirmed event", logging.Fields{
		"order_number": order.OrderNumber,
		"payment_key":  order.PaymentKey,
	})

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypeOrderConfirmed, order.OrderNumber, data)
	return p.publish(ctx, event)
}

// PublishOrderCancelled publishes an order cancellation event.
func (p *KafkaPublisher) PublishOrderCancelled(ctx context.Context, orderNumber, reason string) error {
	p.logger.Debug("Publishing order cancelled event", logging.Fields{
		"order_number": orderNumber,
		"reason":       reason,
	})

	payload := struct {
		OrderNumber string `json:"order_number"`
		Reason      string `json:"reason"`
	}{
		OrderNumber: orderNumber,
		Reason:      reason,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := p.createEvent(ctx, EventTypeOrderCancelled, orderNumber, data)
	return p.publish(ctx, event)
}

func (p *KafkaPublisher) createEvent(ctx context.Context, eventType EventType, orderNumber string, data []byte) *OrderEvent {
	return &OrderEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		OrderNumber:   orderNumber,
		Data:          data,
		Timestamp:     time.Now(),
		CorrelationID: middleware.FromContext(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *OrderEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":     event.ID,
			"event_type":   event.Type,
			"order_number": event.OrderNumber,
			"error":        err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":     event.ID,
		"event_type":   event.Type,
		"order_number": event.OrderNumber,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher", nil)
	return p.writer.Close()
}
