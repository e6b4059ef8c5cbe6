package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
)

// Handler processes one LevelCompleted event. A returned error requeues
// the message once; a redelivered message that fails again is dropped.
type Handler func(ctx context.Context, ev assessment.LevelCompleted) error

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int // Number of concurrent workers
	Prefetch int // Prefetch count per worker
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{Workers: 1, Prefetch: 10}
}

// Consumer reads LevelCompleted events from the queue
type Consumer struct {
	conn       *Connection
	handler    Handler
	workers    int
	prefetch   int
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler Handler, cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		logger:   logger,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.conn.Queue(),
		"",    // consumer tag (auto-generated)
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("starting level event consumer", "queue", c.conn.Queue(), "workers", c.workers)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed", "worker_id", id)
				return
			}
			c.process(ctx, msg)
		}
	}
}

// process decodes, handles and acknowledges a single delivery
func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	var ev assessment.LevelCompleted
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		c.logger.Error("failed to unmarshal event", "error", err)
		// malformed; never requeue
		_ = msg.Reject(false)
		return
	}

	if err := c.handler(ctx, ev); err != nil {
		c.logger.Error("event handler failed",
			"event_id", ev.EventID,
			"redelivered", msg.Redelivered,
			"error", err,
		)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "event_id", ev.EventID, "error", err)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("consumer stopped")
}
