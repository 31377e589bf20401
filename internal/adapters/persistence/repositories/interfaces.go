package repositories

import "context"

// Entity is a persisted row carrying an optimistic concurrency token.
type Entity interface {
	PrimaryKey() uint
	CurrentVersion() uint
	SetVersion(v uint)
}

// Repository defines the keyed CRUD capability shared by all backends.
// Update is compare-and-swap on the entity version and returns
// domain.ErrStaleVersion when another writer got there first.
type Repository[E any] interface {
	GetByID(ctx context.Context, id uint) (*E, error)
	GetAll(ctx context.Context) ([]*E, error)
	Add(ctx context.Context, entity *E) error
	Update(ctx context.Context, entity *E) error
}
