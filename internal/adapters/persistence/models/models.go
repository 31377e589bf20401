package models

import (
	"time"

	"creditflow/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditRequest represents credit_requests table
type CreditRequest struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	ApplicantName     string          `gorm:"size:100;not null" json:"applicant_name"`
	ApplicantIdentity string          `gorm:"size:100;not null;index" json:"applicant_identity"`
	RequestedAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"requested_amount"`
	RequestDate       time.Time       `gorm:"not null;index" json:"request_date"`
	Status            string          `gorm:"size:20;not null;default:'Pending';index" json:"status"`
	RejectionReason   *string         `gorm:"size:500" json:"rejection_reason"`
	Version           uint            `gorm:"not null;default:1" json:"-"`
	DecisionPublished bool            `gorm:"not null;default:false;index" json:"-"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CreditRequest) TableName() string {
	return "credit_requests"
}

// PrimaryKey implements repositories.Entity
func (m *CreditRequest) PrimaryKey() uint { return m.ID }

// CurrentVersion implements repositories.Entity
func (m *CreditRequest) CurrentVersion() uint { return m.Version }

// SetVersion implements repositories.Entity
func (m *CreditRequest) SetVersion(v uint) { m.Version = v }

// ToDomain maps the row to the domain entity
func (m *CreditRequest) ToDomain() *domain.CreditRequest {
	r := &domain.CreditRequest{
		ID:                m.ID,
		ApplicantName:     m.ApplicantName,
		ApplicantIdentity: m.ApplicantIdentity,
		RequestedAmount:   m.RequestedAmount,
		RequestDate:       m.RequestDate.UTC(),
		Status:            domain.Status(m.Status),
		Version:           m.Version,
		DecisionPublished: m.DecisionPublished,
	}
	if m.RejectionReason != nil {
		reason := *m.RejectionReason
		r.RejectionReason = &reason
	}
	return r
}

// FromDomain maps a domain entity to a row
func FromDomain(r *domain.CreditRequest) *CreditRequest {
	m := &CreditRequest{
		ID:                r.ID,
		ApplicantName:     r.ApplicantName,
		ApplicantIdentity: r.ApplicantIdentity,
		RequestedAmount:   r.RequestedAmount,
		RequestDate:       r.RequestDate.UTC(),
		Status:            string(r.Status),
		Version:           r.Version,
		DecisionPublished: r.DecisionPublished,
	}
	if r.RejectionReason != nil {
		reason := *r.RejectionReason
		m.RejectionReason = &reason
	}
	return m
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CreditRequest{})
}
