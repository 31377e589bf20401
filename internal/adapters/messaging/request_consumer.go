package messaging

import (
	"context"
	"errors"
	"log/slog"

	"creditflow/internal/core/domain"
	"creditflow/internal/core/services"
)

// Subscriber delivers a topic's messages to a handler until ctx is done
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// RequestConsumer evaluates every request-created event it receives
type RequestConsumer struct {
	subscriber Subscriber
	service    services.CreditRequestService
	log        *slog.Logger
}

// NewRequestConsumer creates a consumer subscribed to request-created
func NewRequestConsumer(subscriber Subscriber, service services.CreditRequestService, log *slog.Logger) *RequestConsumer {
	if log == nil {
		log = slog.Default()
	}
	return &RequestConsumer{
		subscriber: subscriber,
		service:    service,
		log:        log.With("component", "request_consumer"),
	}
}

// Run blocks until ctx is done and in-flight evaluations have drained
func (c *RequestConsumer) Run(ctx context.Context) error {
	return c.subscriber.Subscribe(ctx, domain.TopicRequestCreated, c.Handle)
}

// Handle evaluates the request named by one request-created payload.
// Malformed payloads and already decided requests are dropped. Only
// unexpected failures are returned.
func (c *RequestConsumer) Handle(ctx context.Context, body []byte) error {
	msg, err := domain.DecodeRequestCreated(body)
	if err != nil {
		c.log.Warn("discarding malformed request-created message", "error", err)
		return nil
	}

	req, err := c.service.Evaluate(ctx, msg.RequestID)
	switch {
	case err == nil:
		c.log.Info("request evaluated", "request_id", req.ID, "status", req.Status)
		return nil
	case errors.Is(err, domain.ErrInvalidState):
		c.log.Debug("request already decided, skipping", "request_id", msg.RequestID)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		c.log.Warn("request-created for unknown request", "request_id", msg.RequestID)
		return nil
	case errors.Is(err, domain.ErrBroker):
		c.log.Warn("decision stored, publish deferred to reconcile", "request_id", msg.RequestID, "error", err)
		return nil
	}
	return err
}
