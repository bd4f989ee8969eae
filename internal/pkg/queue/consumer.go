package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
)

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
	prefetchCount     = 20
)

// Handler processes one repair request
type Handler func(ctx context.Context, req models.RepairRequest) error

// Consumer reads repair requests and hands them to a Handler
type Consumer struct {
	url     string
	queue   string
	handler Handler
	logger  zerolog.Logger
}

// NewConsumer creates a consumer for queue on the broker at url
func NewConsumer(url, queue string, handler Handler, logger zerolog.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, handler: handler, logger: logger}
}

// Run consumes until ctx is done, reconnecting with backoff whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) {
	backoff := minReconnectDelay
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn().Err(err).Dur("retryIn", backoff).Msg("Repair consumer failed to dial broker")
			if !wait(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxReconnectDelay)
			continue
		}
		backoff = minReconnectDelay

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Msg("Repair consumer loop ended, reconnecting")
		if !wait(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		c.logger.Warn().Err(err).Msg("Repair consumer failed to set QoS")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.logger.Info().Str("queue", c.queue).Msg("Repair consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	var req models.RepairRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		c.logger.Error().Err(err).Msg("Dropping malformed repair request")
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler(ctx, req); err != nil {
		// redelivered once; the periodic sweep covers anything still broken
		c.logger.Error().Err(err).Bool("redelivered", d.Redelivered).Msg("Repair request failed")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
