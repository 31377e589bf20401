package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Broker topics
const (
	TopicRequestCreated  = "request-created"
	TopicCreditDecisions = "credit-decisions"
)

// RequestCreated is published after a Pending request is stored.
type RequestCreated struct {
	RequestID         uint            `json:"requestId"`
	ApplicantIdentity string          `json:"applicantIdentity"`
	Amount            decimal.Decimal `json:"amount"`
}

// DecisionMade is published after a decision is stored.
type DecisionMade struct {
	RequestID         uint            `json:"requestId"`
	ApplicantIdentity string          `json:"applicantIdentity"`
	Status            Status          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	RejectionReason   *string         `json:"rejectionReason"`
}

// NewRequestCreated builds the created event for r
func NewRequestCreated(r *CreditRequest) RequestCreated {
	return RequestCreated{
		RequestID:         r.ID,
		ApplicantIdentity: r.ApplicantIdentity,
		Amount:            r.RequestedAmount,
	}
}

// NewDecisionMade builds the decision event for r
func NewDecisionMade(r *CreditRequest) DecisionMade {
	return DecisionMade{
		RequestID:         r.ID,
		ApplicantIdentity: r.ApplicantIdentity,
		Status:            r.Status,
		Amount:            r.RequestedAmount,
		RejectionReason:   r.RejectionReason,
	}
}

// DecodeRequestCreated parses a request-created payload. Unknown fields are ignored.
func DecodeRequestCreated(body []byte) (RequestCreated, error) {
	var msg RequestCreated
	if err := json.Unmarshal(body, &msg); err != nil {
		return RequestCreated{}, err
	}
	if msg.RequestID == 0 {
		return RequestCreated{}, &ValidationError{Field: "requestId", Message: "missing request id"}
	}
	return msg, nil
}

// DecodeDecisionMade parses a credit-decisions payload
func DecodeDecisionMade(body []byte) (DecisionMade, error) {
	var msg DecisionMade
	if err := json.Unmarshal(body, &msg); err != nil {
		return DecisionMade{}, err
	}
	if !msg.Status.IsValid() {
		return DecisionMade{}, &ValidationError{Field: "status", Message: "unknown status " + string(msg.Status)}
	}
	return msg, nil
}
