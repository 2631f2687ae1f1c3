package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

const publishTimeout = 5 * time.Second

// Rabbit publishes events to a durable topic exchange with publisher
// confirms.
type Rabbit struct {
	connection    *amqp.Connection
	channel       *amqp.Channel
	notifyConfirm chan amqp.Confirmation
	exchange      string
}

// NewRabbit dials the broker, opens a confirm-mode channel and declares the
// exchange.
func NewRabbit(url, exchange string) (*Rabbit, error) {
	log.Info().Str("exchange", exchange).Msg("Connecting to RabbitMQ")
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("channel could not be put into confirm mode: %w", err)
	}

	r := &Rabbit{
		connection:    conn,
		channel:       ch,
		notifyConfirm: make(chan amqp.Confirmation, 1),
		exchange:      exchange,
	}
	r.channel.NotifyPublish(r.notifyConfirm)

	err = r.channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return r, nil
}

func (r *Rabbit) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = r.channel.Publish(
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	select {
	case confirm := <-r.notifyConfirm:
		if confirm.Ack {
			log.Debug().Str("routing_key", routingKey).Msg("Event published and confirmed")
			return nil
		}
		return errors.New("event published but not confirmed")
	case <-time.After(publishTimeout):
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Rabbit) PublishSaleCompleted(ctx context.Context, ev SaleCompleted) error {
	return r.publish(ctx, KeySaleCompleted, ev)
}

func (r *Rabbit) PublishStockLow(ctx context.Context, ev StockLow) error {
	return r.publish(ctx, KeyStockLow, ev)
}

// Close shuts the connection down.
func (r *Rabbit) Close() {
	if r.connection != nil && !r.connection.IsClosed() {
		r.connection.Close()
	}
}
