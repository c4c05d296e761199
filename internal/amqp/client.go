// Package amqp announces table writes over RabbitMQ so other processes can
// drop cached copies or take snapshots.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"lihkab/internal/log"
	"lihkab/internal/sheets"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg *TableWrittenMessage) error

// Client publishes TableWrittenMessage on a topic exchange and consumes
// them. Publishing goes through a circuit breaker so a broker outage does
// not slow down every write.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failMu       sync.Mutex
	lastFailure  time.Time
}

var _ sheets.Notifier = (*Client)(nil)

// NewClient connects to the broker and declares the exchange. The durable
// queue is declared when consuming starts.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if _, err := c.publishChannel(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) getLogger() *log.Logger {
	if c.logger == nil {
		return log.Default().WithComponent(log.ComponentAMQP)
	}
	return c.logger
}

// connection returns the live connection, dialing when needed. Callers hold mu.
func (c *Client) connection() (*amqp091.Connection, error) {
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn, nil
	}
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	c.conn = conn
	c.channel = nil
	return conn, nil
}

func (c *Client) declareExchange(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

func (c *Client) publishChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	if c.channel != nil {
		return c.channel, nil
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := c.declareExchange(ch); err != nil {
		ch.Close()
		return nil, err
	}
	c.channel = ch
	return ch, nil
}

// resetConnection drops the connection so the next call redials.
func (c *Client) resetConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// TableWritten publishes a TableWrittenMessage. It implements
// sheets.Notifier.
func (c *Client) TableWritten(ctx context.Context, table, revision string, rows int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open: AMQP publishing suspended")
	}

	body, err := NewTableWrittenMessage(table, revision, rows).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.publishChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(
		ctx,
		c.exchangeName,         // exchange
		RoutingKeyTableWritten, // routing key
		false,                  // mandatory
		false,                  // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.getLogger().DebugContext(ctx, "Published table written message",
		log.FieldTable, table,
		log.FieldRevision, revision,
		log.FieldRows, rows,
		"exchange", c.exchangeName)
	return nil
}

// Consume delivers messages from the durable queue, acknowledging each one
// the handler accepts. Failed messages are requeued and undecodable ones
// dropped. Lost connections are re-established with exponential backoff.
// It returns when ctx is done.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	return c.consumeLoop(ctx, true, handler)
}

// Subscribe delivers messages to a private queue that lives as long as the
// connection. Every subscriber sees every message.
func (c *Client) Subscribe(ctx context.Context, handler Handler) error {
	return c.consumeLoop(ctx, false, handler)
}

func (c *Client) consumeLoop(ctx context.Context, durable bool, handler Handler) error {
	attempt := 0
	for {
		delivered, err := c.consumeOnce(ctx, durable, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		if delivered > 0 {
			attempt = 0
		}
		wait := exponentialBackoff(attempt)
		attempt++
		c.getLogger().WarnContext(ctx, "AMQP consumer lost its connection, reconnecting",
			log.FieldError, err, "retry_in", wait.String())
		c.resetConnection()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, durable bool, handler Handler) (int, error) {
	c.mu.Lock()
	conn, err := c.connection()
	c.mu.Unlock()
	if err != nil {
		return 0, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := c.declareExchange(ch); err != nil {
		return 0, err
	}

	// Durable queues are shared by workers; private ones are per process.
	name, autoDelete, exclusive := c.queueName, false, false
	if !durable {
		name, autoDelete, exclusive = "", true, true
	}
	q, err := ch.QueueDeclare(name, durable, autoDelete, exclusive, false, nil)
	if err != nil {
		return 0, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKeyTableWritten, c.exchangeName, false, nil); err != nil {
		return 0, fmt.Errorf("bind queue: %w", err)
	}
	if durable {
		if err := ch.Qos(1, 0, false); err != nil {
			return 0, fmt.Errorf("set prefetch: %w", err)
		}
	}

	msgs, err := ch.Consume(
		q.Name,    // queue
		"",        // consumer
		!durable,  // auto-ack
		exclusive, // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return 0, fmt.Errorf("start consuming: %w", err)
	}
	c.getLogger().InfoContext(ctx, "Consuming table written messages", "queue", q.Name, "durable", durable)

	delivered := 0
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return delivered, errors.New("message channel closed")
			}
			delivered++
			c.handle(ctx, d, durable, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, ack bool, handler Handler) {
	msg, err := TableWrittenMessageFromJSON(d.Body)
	if err != nil {
		c.getLogger().ErrorContext(ctx, "Failed to decode message", log.FieldError, err)
		if ack {
			_ = d.Nack(false, false)
		}
		return
	}
	if err := handler(ctx, msg); err != nil {
		c.getLogger().ErrorContext(ctx, "Failed to handle message",
			log.FieldError, err, log.FieldTable, msg.Table, log.FieldRevision, msg.Revision)
		if ack {
			_ = d.Nack(false, true)
		}
		return
	}
	if ack {
		_ = d.Ack(false)
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.getLogger().Warn("AMQP circuit breaker opened", "failures", n)
		}
	}
}

// exponentialBackoff doubles from one second and caps at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "closed", "EOF", "broken pipe", "not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Close shuts the channel and the connection. It is safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
