package order

import (
	"context"
	"time"

	"github.com/Makepad-fr/tada/internal/model"
)

// Store is the storage collaborator. Atomic runs fn with exclusive access to
// the list; if fn returns an error none of its writes may become visible.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx is the view of the list inside one Atomic call.
type Tx interface {
	// MaxPosition returns the highest position, or -1 for an empty list.
	MaxPosition(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	// Get returns ErrNotFound (possibly wrapped) for an unknown id.
	Get(ctx context.Context, id string) (model.Item, error)
	// List returns every item ordered by position, then id.
	List(ctx context.Context) ([]model.Item, error)
	// Insert stores a new item and returns it with its assigned id.
	Insert(ctx context.Context, it model.Item) (model.Item, error)
	// Update writes title, description and updated_at of an existing item.
	Update(ctx context.Context, it model.Item) error
	SetPosition(ctx context.Context, id string, pos int, updatedAt time.Time) error
	// Shift adds delta to the position of every item in [from, to].
	// Timestamps of shifted items are left alone.
	Shift(ctx context.Context, from, to, delta int) error
	Delete(ctx context.Context, id string) error
}

// Todos is the request-level contract shared by the local Maintainer and the
// HTTP client.
type Todos interface {
	Append(ctx context.Context, d model.Draft) (model.Item, error)
	List(ctx context.Context) ([]model.Item, error)
	Edit(ctx context.Context, id string, p model.Patch) (model.Item, error)
	Remove(ctx context.Context, id string) error
	Move(ctx context.Context, id string, target int) ([]model.Item, error)
}
