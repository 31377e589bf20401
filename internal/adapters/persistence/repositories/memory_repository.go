package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"creditflow/internal/core/domain"
)

// MemoryCreditRequestRepository is an in-process credit request store.
// Every read returns a copy so callers only ever see snapshots.
type MemoryCreditRequestRepository struct {
	mu     sync.RWMutex
	rows   map[uint]*domain.CreditRequest
	nextID uint
}

// NewMemoryCreditRequestRepository creates an empty in-memory store
func NewMemoryCreditRequestRepository() *MemoryCreditRequestRepository {
	return &MemoryCreditRequestRepository{
		rows:   make(map[uint]*domain.CreditRequest),
		nextID: 1,
	}
}

func (r *MemoryCreditRequestRepository) GetByID(ctx context.Context, id uint) (*domain.CreditRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return row.Clone(), nil
}

func (r *MemoryCreditRequestRepository) GetAll(ctx context.Context) ([]*domain.CreditRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.CreditRequest, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryCreditRequestRepository) Add(ctx context.Context, req *domain.CreditRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	req.ID = r.nextID
	req.Version = 1
	r.nextID++
	r.rows[req.ID] = req.Clone()
	return nil
}

func (r *MemoryCreditRequestRepository) Update(ctx context.Context, req *domain.CreditRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.rows[req.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != req.Version {
		return domain.ErrStaleVersion
	}

	req.Version++
	r.rows[req.ID] = req.Clone()
	return nil
}

func (r *MemoryCreditRequestRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.CreditRequest, error) {
	return r.filter(limit, func(row *domain.CreditRequest) bool {
		return row.Status == domain.StatusPending && row.RequestDate.Before(createdBefore)
	}), nil
}

func (r *MemoryCreditRequestRepository) ListUnpublishedDecisions(ctx context.Context, limit int) ([]*domain.CreditRequest, error) {
	return r.filter(limit, func(row *domain.CreditRequest) bool {
		return row.Status.IsTerminal() && !row.DecisionPublished
	}), nil
}

func (r *MemoryCreditRequestRepository) MarkDecisionPublished(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.DecisionPublished = true
	return nil
}

// Ping always succeeds
func (r *MemoryCreditRequestRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryCreditRequestRepository) filter(limit int, keep func(*domain.CreditRequest) bool) []*domain.CreditRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.CreditRequest
	for _, row := range r.rows {
		if keep(row) {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
