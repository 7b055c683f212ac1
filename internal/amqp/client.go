package amqp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"claimlens/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures          = 5
	openTimeout          = 30 * time.Second
	maxReconnectAttempts = 3
	publishTimeout       = 5 * time.Second

	// directReplyTo is the RabbitMQ pseudo-queue for RPC replies.
	directReplyTo = "amq.rabbitmq.reply-to"
)

// QueryHandler answers one query request. It always returns a reply; failures
// are carried in QueryReply.Error.
type QueryHandler func(ctx context.Context, req *QueryRequest) *QueryReply

// Client publishes query requests and consumes them on the worker side. The
// connection is re-established on demand and guarded by a circuit breaker.
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

// NewClient dials url and declares the exchange and queue.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}
	if logger != nil {
		c.logger = logger.WithComponent(log.ComponentAMQP)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.New(log.DefaultConfig()).WithComponent(log.ComponentAMQP)
	}
	return c.logger
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	err = ch.QueueBind(queueName, queueName, exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureConnected returns a live connection and shared channel, redialing
// with exponential backoff when the previous ones were closed.
func (c *Client) ensureConnected(ctx context.Context) (*amqp091.Connection, *amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.conn, c.channel, nil
	}
	c.closeLocked()

	var lastErr error
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		if attempt > 0 {
			wait := exponentialBackoff(attempt - 1)
			c.log().WarnContext(ctx, "Reconnecting to AMQP broker",
				"attempt", attempt+1,
				"backoff", wait.String(),
				log.FieldError, lastErr)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if lastErr = c.connectLocked(); lastErr == nil {
			return c.conn, c.channel, nil
		}
	}
	return nil, nil, fmt.Errorf("reconnect after %d attempts: %w", maxReconnectAttempts, lastErr)
}

// exponentialBackoff returns 1s doubled per attempt, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	const maxBackoff = 30 * time.Second
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
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
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
	if n >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// isCircuitOpen reports whether calls must be refused. An open circuit moves
// to half-open once openTimeout has passed since the last failure.
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

func (c *Client) checkCall(ctx context.Context, target string) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, refusing to publish to %q", target)
	}
	return ctx.Err()
}

// publish sends msg on the shared channel.
func (c *Client) publish(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
	if err := c.checkCall(ctx, routingKey); err != nil {
		return err
	}
	_, ch, err := c.ensureConnected(ctx)
	if err != nil {
		c.recordFailure()
		return err
	}
	return c.publishOn(ctx, ch, exchange, routingKey, msg)
}

func (c *Client) publishOn(ctx context.Context, ch *amqp091.Channel, exchange, routingKey string, msg amqp091.Publishing) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// PublishQuery sends req without waiting for a reply.
func (c *Client) PublishQuery(ctx context.Context, req *QueryRequest) error {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, c.exchangeName, c.queueName, requestPublishing(ctx, req.RequestID, body))
	if err != nil {
		return err
	}
	c.log().DebugContext(ctx, "Published query request",
		log.FieldRequestID, req.RequestID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func requestPublishing(ctx context.Context, id string, body []byte) amqp091.Publishing {
	msg := amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Transient,
		CorrelationId: id,
		MessageId:     id,
		Timestamp:     time.Now(),
		Body:          body,
	}
	// Requests nobody waits for anymore are dropped by the broker.
	if deadline, ok := ctx.Deadline(); ok {
		if ms := time.Until(deadline).Milliseconds(); ms > 0 {
			msg.Expiration = strconv.FormatInt(ms, 10)
		}
	}
	return msg
}

// Request publishes req and waits for the worker's reply. A dedicated channel
// carries the exchange so that direct reply-to deliveries reach this caller.
func (c *Client) Request(ctx context.Context, req *QueryRequest) (*QueryReply, error) {
	if err := c.checkCall(ctx, c.queueName); err != nil {
		return nil, err
	}
	conn, _, err := c.ensureConnected(ctx)
	if err != nil {
		c.recordFailure()
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("open reply channel: %w", err)
	}
	defer ch.Close()

	replies, err := ch.Consume(directReplyTo, "", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume replies: %w", err)
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	body, err := req.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	msg := requestPublishing(ctx, req.RequestID, body)
	msg.ReplyTo = directReplyTo

	start := time.Now()
	if err := c.publishOn(ctx, ch, c.exchangeName, c.queueName, msg); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-replies:
			if !ok {
				return nil, fmt.Errorf("reply channel closed")
			}
			if d.CorrelationId != req.RequestID {
				continue
			}
			reply, err := QueryReplyFromJSON(d.Body)
			if err != nil {
				return nil, err
			}
			c.log().DebugContext(ctx, "Received query reply",
				log.FieldRequestID, req.RequestID,
				log.FieldDuration, time.Since(start).Milliseconds())
			return reply, nil
		}
	}
}

// ConsumeQueries runs concurrency handlers over the request queue until ctx
// is cancelled or the delivery channel closes. Replies go to the ReplyTo
// address of each request, if any.
func (c *Client) ConsumeQueries(ctx context.Context, concurrency int, handler QueryHandler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	_, ch, err := c.ensureConnected(ctx)
	if err != nil {
		return err
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log().InfoContext(ctx, "Started consuming query requests",
		"queue", c.queueName,
		"concurrency", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case d, ok := <-msgs:
					if !ok {
						return fmt.Errorf("message channel closed")
					}
					c.handleDelivery(gctx, d, handler)
				}
			}
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
		return ctx.Err()
	}
	return err
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler QueryHandler) {
	req, err := QueryRequestFromJSON(d.Body)
	var reply *QueryReply
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
		reply = &QueryReply{
			RequestID: d.CorrelationId,
			Error:     &ReplyError{Code: CodeBadRequest, Message: err.Error()},
			Timestamp: time.Now().UTC(),
		}
	} else {
		if req.RequestID == "" {
			req.RequestID = d.CorrelationId
		}
		reply = handler(ctx, req)
		reply.RequestID = req.RequestID
	}

	if d.ReplyTo != "" {
		if err := c.reply(ctx, d, reply); err != nil {
			c.log().ErrorContext(ctx, "Failed to publish reply",
				log.FieldRequestID, reply.RequestID,
				log.FieldError, err)
		}
	}

	if req == nil {
		// malformed, don't requeue
		if err := d.Nack(false, false); err != nil {
			c.log().ErrorContext(ctx, "Failed to reject message",
				log.FieldRequestID, reply.RequestID,
				"delivery_tag", d.DeliveryTag,
				log.FieldError, err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		// The broker redelivers the request once the channel is reopened.
		c.log().ErrorContext(ctx, "Failed to acknowledge message",
			log.FieldRequestID, reply.RequestID,
			"delivery_tag", d.DeliveryTag,
			log.FieldError, err)
	}
}

func (c *Client) reply(ctx context.Context, d amqp091.Delivery, reply *QueryReply) error {
	body, err := reply.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	return c.publish(ctx, "", d.ReplyTo, amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close releases the channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
