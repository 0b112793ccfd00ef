package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the durable product table keyed by id.
// Put is an atomic upsert of one record; Get and Delete return ErrNotFound for unknown ids.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	Put(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Filter scans the whole table and returns matches ordered by creation time.
	Filter(ctx context.Context, match func(*Product) bool) ([]*Product, error)
	// Clear removes every product. Used for resets and tests.
	Clear(ctx context.Context) error
}
