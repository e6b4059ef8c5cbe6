// Package events announces finished levels over RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue receives LevelCompleted events when no queue is configured.
const DefaultQueue = "ailevels.level_completed"

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	queue      string
	logger     *slog.Logger
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// Dial connects to RabbitMQ and declares queue.
func Dial(rawURL, queue string, logger *slog.Logger) (*Connection, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connection{url: rawURL, queue: queue, logger: logger}

	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	go c.handleReconnect(c.conn.NotifyClose(make(chan *amqp.Error, 1)))

	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.url), "queue", c.queue)
	return nil
}

// handleReconnect waits for an unexpected close and redials with backoff.
func (c *Connection) handleReconnect(notifyClose <-chan *amqp.Error) {
	err := <-notifyClose
	if err == nil {
		return // normal close
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	c.logger.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects,
	)

	for i := 0; i < 10; i++ {
		c.reconnects++
		time.Sleep(reconnectDelay(i))

		if err := c.connect(); err != nil {
			c.logger.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}
		c.logger.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	c.logger.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

func reconnectDelay(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// Queue returns the declared queue name.
func (c *Connection) Queue() string { return c.queue }

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes v as a persistent JSON message on the queue.
func (c *Connection) PublishJSON(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch := c.Channel()
	if ch == nil {
		return fmt.Errorf("no open channel")
	}

	return ch.PublishWithContext(
		ctx,
		"",      // default exchange
		c.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL hides the password for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Redacted()
}
