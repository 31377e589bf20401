// Package evaluation holds the credit decision policy. It has no I/O.
package evaluation

import (
	"creditflow/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RejectionReason is the reason recorded when no approval rule matches.
const RejectionReason = "Credit score or requested amount didn't meet requirements"

var (
	goodScoreLimit = decimal.NewFromInt(10000)
	fairScoreLimit = decimal.NewFromInt(5000)
)

// Decision is the outcome of Evaluate
type Decision struct {
	Status domain.Status
	Reason *string
}

// Approved reports whether the decision approves the request
func (d Decision) Approved() bool {
	return d.Status == domain.StatusApproved
}

// Evaluate applies the approval rules in order:
//  1. good score and amount <= 10000
//  2. fair score and amount <= 5000
//  3. otherwise rejected
func Evaluate(score domain.CreditScore, amount decimal.Decimal) Decision {
	if score.IsGood() && amount.LessThanOrEqual(goodScoreLimit) {
		return Decision{Status: domain.StatusApproved}
	}
	if score.IsFair() && amount.LessThanOrEqual(fairScoreLimit) {
		return Decision{Status: domain.StatusApproved}
	}

	reason := RejectionReason
	return Decision{Status: domain.StatusRejected, Reason: &reason}
}

// Apply transitions r according to d.
func Apply(r *domain.CreditRequest, d Decision) error {
	if d.Approved() {
		return r.Approve()
	}
	reason := RejectionReason
	if d.Reason != nil {
		reason = *d.Reason
	}
	return r.Reject(reason)
}
