package domain

import "fmt"

// Score bounds
const (
	MinCreditScore = 300
	MaxCreditScore = 850
)

// CreditTier classifies a CreditScore
type CreditTier string

const (
	TierGood CreditTier = "good"
	TierFair CreditTier = "fair"
	TierPoor CreditTier = "poor"
)

// CreditScore is an immutable score in [300, 850].
type CreditScore struct {
	value int
}

// NewCreditScore validates the range and builds a CreditScore.
func NewCreditScore(value int) (CreditScore, error) {
	if value < MinCreditScore || value > MaxCreditScore {
		return CreditScore{}, fmt.Errorf("%w: got %d", ErrInvalidScore, value)
	}
	return CreditScore{value: value}, nil
}

// MustCreditScore panics on an out-of-range value. Intended for constants and tests.
func MustCreditScore(value int) CreditScore {
	s, err := NewCreditScore(value)
	if err != nil {
		panic(err)
	}
	return s
}

func (s CreditScore) Value() int { return s.value }

func (s CreditScore) IsGood() bool { return s.value >= 700 }

func (s CreditScore) IsFair() bool { return s.value >= 600 && s.value < 700 }

func (s CreditScore) IsPoor() bool { return s.value < 600 }

// Tier returns the tier classification
func (s CreditScore) Tier() CreditTier {
	switch {
	case s.IsGood():
		return TierGood
	case s.IsFair():
		return TierFair
	default:
		return TierPoor
	}
}
