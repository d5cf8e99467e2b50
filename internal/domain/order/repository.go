package order

import "context"

// Repository is the persistent order store port
type Repository interface {
	// EnsureLoaded populates the in-memory view from durable storage once.
	EnsureLoaded(ctx context.Context) error
	// Merge classifies each incoming order as added, updated or unchanged,
	// applies the changes and persists the collection when anything changed.
	Merge(ctx context.Context, incoming []Order) (UpdateResult, error)
	FindAll(ctx context.Context, filter Filter) ([]Order, error)
	// FindByID returns ErrOrderNotFound when no order has the id.
	FindByID(ctx context.Context, id string) (Order, error)
	Count(ctx context.Context) (int, error)
}

// Source fetches the current batch of orders from the upstream shop panel
type Source interface {
	FetchBatch(ctx context.Context) ([]Order, error)
}
