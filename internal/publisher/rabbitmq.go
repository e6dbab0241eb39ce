// Package publisher hands conversion requests to the external conversion
// worker over RabbitMQ.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"insight_sync/internal/domain"
)

// ErrNotConfirmed is returned when the broker nacks a conversion request.
var ErrNotConfirmed = errors.New("conversion request was not confirmed by the broker")

// RabbitMQ publishes conversion requests with publisher confirms. A request
// counts as sent only once the broker has acknowledged it.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger

	// mu serializes publishes; file sync requests conversions concurrently.
	mu sync.Mutex
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to conversion broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareConversionQueue(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	logger = logger.With("component", "conversions")
	logger.Info("conversion queue ready",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// declareConversionQueue sets up a durable direct exchange and the durable
// queue the conversion worker consumes from.
func declareConversionQueue(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}
	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", q.Name, cfg.Exchange, err)
	}
	return nil
}

// RequestConversion asks the conversion worker to render the source blob
// into every target and waits for the broker to confirm the request.
func (r *RabbitMQ) RequestConversion(ctx context.Context, req *domain.ConversionRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode conversion request: %w", err)
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	r.mu.Lock()
	confirmation, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, r.exchange, r.routingKey, false, false, msg)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("request conversion of %s: %w", req.Source.URI, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm conversion of %s: %w", req.Source.URI, err)
	}
	if !acked {
		return fmt.Errorf("request conversion of %s: %w", req.Source.URI, ErrNotConfirmed)
	}

	r.logger.Debug("conversion requested",
		"message_id", msg.MessageId,
		"source", req.Source.URI,
		"mime_type", req.Source.MimeType,
		"targets", len(req.Targets),
	)
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
