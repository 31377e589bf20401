package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"creditflow/internal/config"
	"creditflow/internal/core/domain"
	"creditflow/internal/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrNotConnected is returned while the broker link is down
	ErrNotConnected = errors.New("broker not connected")
	// ErrUnknownTopic is returned for a topic with no exchange
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrNacked is returned when the broker refuses a publish
	ErrNacked = errors.New("publish not confirmed by broker")
)

// Handler processes one delivery body
type Handler func(ctx context.Context, body []byte) error

// Gateway is a single broker connection with one confirming publish
// channel. Publishes are serialized. When the link drops the gateway
// reconnects in the background and publishes fail until it is back.
type Gateway struct {
	cfg      config.RabbitMQConfig
	consumer config.ConsumerConfig
	name     string
	log      *slog.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	ready  chan struct{}
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dial func(url string, cfg amqp.Config) (*amqp.Connection, error)
}

// NewGateway creates an unconnected gateway. name shows up as the
// connection name in the broker UI.
func NewGateway(name string, cfg config.RabbitMQConfig, consumer config.ConsumerConfig, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:      cfg,
		consumer: consumer,
		name:     name,
		log:      log.With("component", "rabbitmq", "connection", name),
		ready:    make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		dial:     amqp.DialConfig,
	}
}

// Exchange returns the exchange a topic is published to
func (g *Gateway) Exchange(topic string) (string, error) {
	switch topic {
	case domain.TopicRequestCreated:
		return g.cfg.RequestCreatedExchange, nil
	case domain.TopicCreditDecisions:
		return g.cfg.CreditDecisionsExchange, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// Queue returns the durable queue bound to a topic's exchange
func (g *Gateway) Queue(topic string) (string, error) {
	switch topic {
	case domain.TopicRequestCreated:
		return g.cfg.RequestsQueue, nil
	case domain.TopicCreditDecisions:
		return g.cfg.DecisionsQueue, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

func (g *Gateway) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	if g.cfg.MaxReconnectDelay > 0 {
		bo.MaxInterval = g.cfg.MaxReconnectDelay
	}
	bo.MaxElapsedTime = 0
	return bo
}

// Connect dials the broker, retrying until ctx is done, and declares the
// topology.
func (g *Gateway) Connect(ctx context.Context) error {
	err := backoff.RetryNotify(g.connect, backoff.WithContext(g.newBackOff(), ctx),
		func(err error, next time.Duration) {
			g.log.Warn("⚠️ broker connection failed, retrying", "error", err, "retry_in", next)
		})
	if err != nil {
		return domain.NewBrokerError("", err)
	}
	return nil
}

func (g *Gateway) connect() error {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return backoff.Permanent(ErrNotConnected)
	}

	conn, err := g.dial(g.cfg.AMQPURL(), amqp.Config{
		Heartbeat:  g.cfg.Heartbeat,
		Properties: amqp.Table{"connection_name": g.name},
	})
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		shutdown(ch, conn)
		return err
	}
	if err := g.declare(ch); err != nil {
		shutdown(ch, conn)
		return err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		shutdown(ch, conn)
		return backoff.Permanent(ErrNotConnected)
	}
	if g.ch != nil {
		g.mu.Unlock()
		shutdown(ch, conn)
		return nil
	}
	g.conn = conn
	g.ch = ch
	close(g.ready)
	g.wg.Add(1)
	g.mu.Unlock()

	go g.watch(conn, ch)

	g.log.Info("✅ connected to broker", "host", g.cfg.Host, "port", g.cfg.Port)
	return nil
}

// declare sets up one durable fanout exchange per topic and one durable
// queue bound to each. Declaring an existing identical entity is a no-op.
func (g *Gateway) declare(ch *amqp.Channel) error {
	for _, topic := range []string{domain.TopicRequestCreated, domain.TopicCreditDecisions} {
		exchange, _ := g.Exchange(topic)
		queue, _ := g.Queue(topic)

		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
		}
	}
	return nil
}

// DeclareTopology re-declares exchanges and queues on the live channel
func (g *Gateway) DeclareTopology(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ch == nil {
		return domain.NewBrokerError("", ErrNotConnected)
	}
	return domain.NewBrokerError("", g.declare(g.ch))
}

func (g *Gateway) watch(conn *amqp.Connection, ch *amqp.Channel) {
	defer g.wg.Done()

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	var reason *amqp.Error
	select {
	case reason = <-connClosed:
	case reason = <-chClosed:
	case <-g.ctx.Done():
		return
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.ch = nil
	g.conn = nil
	g.ready = make(chan struct{})
	g.mu.Unlock()

	shutdown(ch, conn)

	logger.Critical(g.ctx, g.log, "🔥 broker connection lost, publishes will fail until reconnected", "reason", reason)

	err := backoff.RetryNotify(g.connect, backoff.WithContext(g.newBackOff(), g.ctx),
		func(err error, next time.Duration) {
			g.log.Warn("⚠️ broker reconnect failed", "error", err, "retry_in", next)
		})
	if err != nil && g.ctx.Err() == nil {
		logger.Critical(g.ctx, g.log, "broker reconnect abandoned", "error", err)
	}
}

// IsConnected reports whether the publish channel is open
func (g *Gateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch != nil && !g.ch.IsClosed()
}

// Ping fails with a BrokerError while disconnected
func (g *Gateway) Ping(ctx context.Context) error {
	if !g.IsConnected() {
		return domain.NewBrokerError("", ErrNotConnected)
	}
	return nil
}

// Ready is closed once the gateway is connected
func (g *Gateway) Ready() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Publish serializes payload as JSON and publishes it persistently to the
// topic's exchange, waiting for the broker confirm.
func (g *Gateway) Publish(ctx context.Context, topic string, payload interface{}) error {
	exchange, err := g.Exchange(topic)
	if err != nil {
		return domain.NewBrokerError(topic, err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewBrokerError(topic, fmt.Errorf("encode payload: %w", err))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ch == nil || g.ch.IsClosed() {
		return domain.NewBrokerError(topic, ErrNotConnected)
	}

	if g.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.PublishTimeout)
		defer cancel()
	}

	confirm, err := g.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         topic,
		Body:         body,
	})
	if err != nil {
		return domain.NewBrokerError(topic, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return domain.NewBrokerError(topic, err)
	}
	if !acked {
		return domain.NewBrokerError(topic, ErrNacked)
	}
	return nil
}

// Subscribe consumes the durable queue bound to topic's exchange
func (g *Gateway) Subscribe(ctx context.Context, topic string, handler Handler) error {
	queue, err := g.Queue(topic)
	if err != nil {
		return domain.NewBrokerError(topic, err)
	}
	return g.Consume(ctx, queue, handler)
}

// Consume delivers messages from queue to handler on a pool of workers
// until ctx is done, resubscribing after reconnects. On shutdown it stops
// taking new deliveries and waits up to the consumer shutdown timeout for
// in-flight handlers.
func (g *Gateway) Consume(ctx context.Context, queue string, handler Handler) error {
	for {
		select {
		case <-g.Ready():
		case <-ctx.Done():
			return nil
		case <-g.ctx.Done():
			return ErrNotConnected
		}

		err := g.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			return nil
		}
		g.log.Warn("⚠️ consumer interrupted, resubscribing", "queue", queue, "error", err)

		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil
		}
	}
}

func (g *Gateway) consumeOnce(ctx context.Context, queue string, handler Handler) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	workers := g.consumer.Workers
	if workers < 1 {
		workers = 1
	}
	prefetch := g.consumer.Prefetch
	if prefetch < workers {
		prefetch = workers
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return err
	}

	tag := g.name + "-" + uuid.NewString()
	deliveries, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	g.log.Info("🚀 consuming", "queue", queue, "workers", workers, "prefetch", prefetch)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				g.handle(ctx, d, handler)
			}
		}()
	}

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		return errors.New("delivery channel closed")
	case <-ctx.Done():
	}

	if err := ch.Cancel(tag, false); err != nil {
		g.log.Warn("consumer cancel failed", "error", err)
	}

	timeout := g.consumer.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case <-stopped:
		g.log.Info("🛑 consumer drained", "queue", queue)
	case <-time.After(timeout):
		g.log.Warn("consumer drain timed out, unacked deliveries will be redelivered", "queue", queue)
	}
	return nil
}

// handle runs handler with a context that survives shutdown, bounded by
// the handler timeout. The delivery is acked whatever the outcome.
// Work lost to a transient failure is picked up by the reconcile sweep.
func (g *Gateway) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	timeout := g.consumer.HandlerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := g.safeHandle(hctx, d.Body, handler); err != nil {
		g.log.Error("❌ message handling failed", "message_id", d.MessageId, "error", err)
	}
	if err := d.Ack(false); err != nil {
		g.log.Warn("ack failed", "message_id", d.MessageId, "error", err)
	}
}

func (g *Gateway) safeHandle(ctx context.Context, body []byte, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, body)
}

// Close closes the channel, then the connection, and stops reconnecting
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.cancel()

	var open []closer
	if g.ch != nil {
		open = append(open, g.ch)
	}
	if g.conn != nil {
		open = append(open, g.conn)
	}
	err := shutdown(open...)
	g.ch, g.conn = nil, nil
	g.mu.Unlock()

	g.wg.Wait()
	g.log.Info("🛑 broker connection closed")
	return err
}

type closer interface {
	Close() error
}

// shutdown closes in argument order, channel before connection.
// Already-closed handles are not an error.
func shutdown(handles ...closer) error {
	var errs []error
	for _, h := range handles {
		if err := h.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
