package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stored amounts are DECIMAL(AmountPrecision, AmountScale).
const (
	AmountPrecision = 18
	AmountScale     = 2
)

var maxAmount = decimal.New(1, AmountPrecision-AmountScale)

// Status represents the lifecycle state of a credit request
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	return s == StatusPending || s.IsTerminal()
}

// CreditRequest is a single applicant's credit application.
//
// ID is assigned by the store on Add. Version is the optimistic
// concurrency token the store compares on Update.
type CreditRequest struct {
	ID                uint
	ApplicantName     string
	ApplicantIdentity string
	RequestedAmount   decimal.Decimal
	RequestDate       time.Time
	Status            Status
	RejectionReason   *string
	Version           uint
	DecisionPublished bool
}

// NewCreditRequest validates intake fields and returns a Pending request.
func NewCreditRequest(name, identity string, amount decimal.Decimal, now time.Time) (*CreditRequest, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "applicantName", Message: "applicant name cannot be empty"}
	}
	if strings.TrimSpace(identity) == "" {
		return nil, &ValidationError{Field: "applicantIdentity", Message: "applicant identity cannot be empty"}
	}
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "requestedAmount", Message: "requested amount must be positive"}
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return nil, &ValidationError{Field: "requestedAmount", Message: "requested amount allows at most 2 decimal places"}
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return nil, &ValidationError{Field: "requestedAmount", Message: "requested amount is too large"}
	}

	return &CreditRequest{
		ApplicantName:     name,
		ApplicantIdentity: identity,
		RequestedAmount:   amount,
		RequestDate:       now.UTC(),
		Status:            StatusPending,
	}, nil
}

// Approve moves a Pending request to Approved.
func (r *CreditRequest) Approve() error {
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusApproved
	r.RejectionReason = nil
	return nil
}

// Reject moves a Pending request to Rejected with a non-empty reason.
func (r *CreditRequest) Reject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: "rejectionReason", Message: "rejection reason cannot be empty"}
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusRejected
	r.RejectionReason = &reason
	return nil
}

// Clone returns a deep copy, used to hand out immutable snapshots.
func (r *CreditRequest) Clone() *CreditRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.RejectionReason != nil {
		reason := *r.RejectionReason
		c.RejectionReason = &reason
	}
	return &c
}
