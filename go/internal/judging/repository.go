package judging

import (
	"context"
)

// Repository adapts a concrete transactional store to Store.
type Repository[T Tx] struct {
	withinTx func(ctx context.Context, fn func(tx T) error) error
}

func NewRepository[T Tx](withinTx func(ctx context.Context, fn func(tx T) error) error) *Repository[T] {
	return &Repository[T]{withinTx: withinTx}
}

func (r *Repository[T]) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.withinTx(ctx, func(tx T) error {
		return fn(tx)
	})
}
