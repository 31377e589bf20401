package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound      = errors.New("credit request not found")
	ErrInvalidState  = errors.New("credit request has already been processed")
	ErrBroker        = errors.New("message broker failure")
	ErrScoreProvider = errors.New("credit score provider failure")
	ErrStaleVersion  = errors.New("stale record version")
	ErrInvalidScore  = errors.New("credit score must be between 300 and 850")
)

// ValidationError reports a rejected input field on intake.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// BrokerError wraps a publish/subscribe/connection failure on a topic.
type BrokerError struct {
	Topic string
	Err   error
}

func (e *BrokerError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("%v: %v", ErrBroker, e.Err)
	}
	return fmt.Sprintf("%v on %q: %v", ErrBroker, e.Topic, e.Err)
}

// Is lets errors.Is(err, ErrBroker) match any BrokerError.
func (e *BrokerError) Is(target error) bool {
	return target == ErrBroker
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError wraps err as a BrokerError for topic.
func NewBrokerError(topic string, err error) error {
	if err == nil {
		return nil
	}
	return &BrokerError{Topic: topic, Err: err}
}
