package drop

import "context"

// Store is the metadata persistence contract. Each call is atomic;
// Create must enforce slug uniqueness, surfacing ErrConflict so two
// concurrent claims of the same explicit slug resolve to exactly one
// winner.
type Store interface {
	Create(ctx context.Context, d *Drop) error
	GetBySlug(ctx context.Context, slug string) (*Drop, error)
	Update(ctx context.Context, slug string, u Update) (*Drop, error)
	DeleteBySlug(ctx context.Context, slug string) error
	List(ctx context.Context, offset, limit int) ([]*Drop, int, error)
}
