package repositories

import (
	"context"
	"time"

	"creditflow/internal/adapters/persistence/models"
	"creditflow/internal/core/domain"

	"gorm.io/gorm"
)

// CreditRequestRepository handles credit request data access on top of the
// generic gorm repository
type CreditRequestRepository struct {
	db   *gorm.DB
	base Repository[models.CreditRequest]
}

// NewCreditRequestRepository creates a new credit request repository
func NewCreditRequestRepository(db *gorm.DB) *CreditRequestRepository {
	return &CreditRequestRepository{
		db:   db,
		base: NewGormRepository[models.CreditRequest](db),
	}
}

// GetByID gets a credit request by ID, domain.ErrNotFound when absent
func (r *CreditRequestRepository) GetByID(ctx context.Context, id uint) (*domain.CreditRequest, error) {
	row, err := r.base.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// GetAll lists every credit request
func (r *CreditRequestRepository) GetAll(ctx context.Context) ([]*domain.CreditRequest, error) {
	rows, err := r.base.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

// Add stores a new request and assigns its ID and version
func (r *CreditRequestRepository) Add(ctx context.Context, req *domain.CreditRequest) error {
	row := models.FromDomain(req)
	if err := r.base.Add(ctx, row); err != nil {
		return err
	}
	req.ID = row.ID
	req.Version = row.Version
	return nil
}

// Update persists status and rejection reason if req.Version is current
func (r *CreditRequestRepository) Update(ctx context.Context, req *domain.CreditRequest) error {
	row := models.FromDomain(req)
	if err := r.base.Update(ctx, row); err != nil {
		return err
	}
	req.Version = row.Version
	return nil
}

// ListPending lists Pending requests created before the cutoff, oldest first
func (r *CreditRequestRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.CreditRequest, error) {
	var rows []*models.CreditRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND request_date < ?", string(domain.StatusPending), createdBefore.UTC()).
		Order("request_date ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

// ListUnpublishedDecisions lists decided requests whose decision event has not been confirmed
func (r *CreditRequestRepository) ListUnpublishedDecisions(ctx context.Context, limit int) ([]*domain.CreditRequest, error) {
	var rows []*models.CreditRequest
	err := r.db.WithContext(ctx).
		Where("status IN ? AND decision_published = ?",
			[]string{string(domain.StatusApproved), string(domain.StatusRejected)}, false).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

// MarkDecisionPublished flags the decision event as delivered. It does not
// touch the version column.
func (r *CreditRequestRepository) MarkDecisionPublished(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.CreditRequest{}).
		Where("id = ?", id).
		UpdateColumn("decision_published", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.CreditRequest{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

// Ping checks the connection
func (r *CreditRequestRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toDomainList(rows []*models.CreditRequest) []*domain.CreditRequest {
	out := make([]*domain.CreditRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out
}
