package repositories

import (
	"context"
	"errors"

	"creditflow/internal/core/domain"

	"gorm.io/gorm"
)

// GormRepository implements Repository for any gorm model whose pointer
// type is an Entity.
type GormRepository[E any, P interface {
	*E
	Entity
}] struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm-backed repository
func NewGormRepository[E any, P interface {
	*E
	Entity
}](db *gorm.DB) *GormRepository[E, P] {
	return &GormRepository[E, P]{db: db}
}

// GetByID gets an entity by ID
func (r *GormRepository[E, P]) GetByID(ctx context.Context, id uint) (*E, error) {
	var entity E
	err := r.db.WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// GetAll lists all entities ordered by ID
func (r *GormRepository[E, P]) GetAll(ctx context.Context) ([]*E, error) {
	var entities []*E
	err := r.db.WithContext(ctx).Order("id ASC").Find(&entities).Error
	return entities, err
}

// Add creates a new entity at version 1
func (r *GormRepository[E, P]) Add(ctx context.Context, entity *E) error {
	p := P(entity)
	if p.CurrentVersion() == 0 {
		p.SetVersion(1)
	}
	return r.db.WithContext(ctx).Create(entity).Error
}

// Update saves every column except the key and creation time if the
// stored version still matches.
func (r *GormRepository[E, P]) Update(ctx context.Context, entity *E) error {
	p := P(entity)
	prev := p.CurrentVersion()
	p.SetVersion(prev + 1)

	res := r.db.WithContext(ctx).
		Model(entity).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(entity)
	if res.Error != nil {
		p.SetVersion(prev)
		return res.Error
	}
	if res.RowsAffected == 0 {
		p.SetVersion(prev)
		return domain.ErrStaleVersion
	}
	return nil
}
