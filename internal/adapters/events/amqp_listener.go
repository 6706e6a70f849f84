package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// publishChannel is the part of *amqp091.Channel the listener needs
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPListener forwards live events to a RabbitMQ topic exchange
type AMQPListener struct {
	conn       *amqp091.Connection
	channel    publishChannel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewAMQPListener dials the broker and declares the exchange
func NewAMQPListener(url, exchange, routingKey string, logger *zap.Logger) (*AMQPListener, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	l := newAMQPListener(ch, exchange, routingKey, logger)
	l.conn = conn
	return l, nil
}

func newAMQPListener(ch publishChannel, exchange, routingKey string, logger *zap.Logger) *AMQPListener {
	return &AMQPListener{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.Named("amqp"),
	}
}

// OnEvent publishes the event as a persistent JSON message
func (l *AMQPListener) OnEvent(ctx context.Context, event map[string]any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal live event: %w", err)
	}

	err = l.channel.PublishWithContext(ctx,
		l.exchange,
		l.routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish live event: %w", err)
	}

	l.logger.Debug("Published live event", zap.String("routing_key", l.routingKey))
	return nil
}

// IsConnected reports whether the broker connection is still open
func (l *AMQPListener) IsConnected() bool {
	return l.conn != nil && !l.conn.IsClosed()
}

// Close closes the channel and the connection
func (l *AMQPListener) Close() {
	if l.channel != nil {
		_ = l.channel.Close()
	}
	if l.conn != nil {
		_ = l.conn.Close()
	}
}
