package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"creditflow/internal/config"
	"creditflow/internal/core/domain"
	"creditflow/internal/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

func testRabbitConfig() config.RabbitMQConfig {
	return config.RabbitMQConfig{
		Host:                    "localhost",
		Port:                    "5672",
		User:                    "guest",
		Password:                "guest",
		VirtualHost:             "/",
		MaxReconnectDelay:       time.Second,
		PublishTimeout:          time.Second,
		RequestCreatedExchange:  "request-created",
		CreditDecisionsExchange: "credit-decisions",
		RequestsQueue:           "credit-requests-queue",
		DecisionsQueue:          "credit-decisions-queue",
	}
}

func TestGatewayTopology(t *testing.T) {
	g := NewGateway("test", testRabbitConfig(), config.ConsumerConfig{}, logger.Discard())

	tests := []struct {
		topic    string
		exchange string
		queue    string
	}{
		{domain.TopicRequestCreated, "request-created", "credit-requests-queue"},
		{domain.TopicCreditDecisions, "credit-decisions", "credit-decisions-queue"},
	}
	for _, tt := range tests {
		exchange, err := g.Exchange(tt.topic)
		if err != nil || exchange != tt.exchange {
			t.Errorf("Exchange(%s) = %q, %v; want %q", tt.topic, exchange, err, tt.exchange)
		}
		queue, err := g.Queue(tt.topic)
		if err != nil || queue != tt.queue {
			t.Errorf("Queue(%s) = %q, %v; want %q", tt.topic, queue, err, tt.queue)
		}
	}

	if _, err := g.Exchange("nope"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Exchange(nope) error = %v", err)
	}
}

func TestGatewayPublishWhileDisconnected(t *testing.T) {
	g := NewGateway("test", testRabbitConfig(), config.ConsumerConfig{}, logger.Discard())
	defer g.Close()

	err := g.Publish(context.Background(), domain.TopicRequestCreated, map[string]int{"requestId": 1})
	if !errors.Is(err, domain.ErrBroker) || !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want BrokerError wrapping ErrNotConnected", err)
	}

	var be *domain.BrokerError
	if !errors.As(err, &be) || be.Topic != domain.TopicRequestCreated {
		t.Errorf("Publish() error = %#v, want topic %s", err, domain.TopicRequestCreated)
	}

	if err := g.Publish(context.Background(), "nope", nil); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Publish(nope) error = %v", err)
	}

	if g.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if err := g.Ping(context.Background()); !errors.Is(err, domain.ErrBroker) {
		t.Errorf("Ping() error = %v", err)
	}
}

type recordingCloser struct {
	name  string
	err   error
	order *[]string
}

func (c *recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestShutdownClosesChannelBeforeConnection(t *testing.T) {
	var order []string
	ch := &recordingCloser{name: "channel", err: amqp.ErrClosed, order: &order}
	conn := &recordingCloser{name: "connection", order: &order}

	if err := shutdown(ch, conn); err != nil {
		t.Errorf("shutdown() error = %v, want nil for already-closed channel", err)
	}
	if len(order) != 2 || order[0] != "channel" || order[1] != "connection" {
		t.Errorf("close order = %v, want [channel connection]", order)
	}

	order = nil
	boom := errors.New("boom")
	conn.err = boom
	ch.err = nil
	if err := shutdown(ch, conn); !errors.Is(err, boom) {
		t.Errorf("shutdown() error = %v, want %v", err, boom)
	}
}

func TestGatewayConnectGivesUpWithContext(t *testing.T) {
	g := NewGateway("test", testRabbitConfig(), config.ConsumerConfig{}, logger.Discard())
	defer g.Close()

	attempts := 0
	g.dial = func(url string, cfg amqp.Config) (*amqp.Connection, error) {
		attempts++
		if url != testRabbitConfig().AMQPURL() {
			t.Errorf("dial url = %q", url)
		}
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := g.Connect(ctx)
	if !errors.Is(err, domain.ErrBroker) {
		t.Errorf("Connect() error = %v, want ErrBroker", err)
	}
	if attempts == 0 {
		t.Error("dial never attempted")
	}
}

func TestGatewayConsumeStopsOnClose(t *testing.T) {
	g := NewGateway("test", testRabbitConfig(), config.ConsumerConfig{}, logger.Discard())

	done := make(chan error, 1)
	go func() {
		done <- g.Consume(context.Background(), "q", func(ctx context.Context, body []byte) error { return nil })
	}()

	g.Close()
	g.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("Consume() error = %v, want ErrNotConnected", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Consume() did not return after Close")
	}
}
