package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/model"
)

// Maintainer implements Todos on top of a Store.
type Maintainer struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

// Option configures a Maintainer.
type Option func(*Maintainer)

// WithClock replaces time.Now; tests use it to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Maintainer) { m.now = now }
}

// WithLogger sets the logger used for mutation traces.
func WithLogger(l *zap.Logger) Option {
	return func(m *Maintainer) { m.log = l }
}

// New returns a Maintainer backed by store.
func New(store Store, opts ...Option) *Maintainer {
	m := &Maintainer{
		store: store,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

var _ Todos = (*Maintainer)(nil)

func (m *Maintainer) stamp() time.Time { return m.now().UTC() }

// Append adds a new item at the end of the list.
func (m *Maintainer) Append(ctx context.Context, d model.Draft) (model.Item, error) {
	d, err := validateDraft(d)
	if err != nil {
		return model.Item{}, err
	}

	var created model.Item
	err = m.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		last, err := tx.MaxPosition(ctx)
		if err != nil {
			return err
		}
		n, err := tx.Count(ctx)
		if err != nil {
			return err
		}
		if last+1 != n {
			return &StorageError{Op: "append", Err: fmt.Errorf("%w: max position %d with %d items", ErrInconsistent, last, n)}
		}
		now := m.stamp()
		created, err = tx.Insert(ctx, model.Item{
			Title:       d.Title,
			Description: d.Description,
			Position:    last + 1,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return err
	})
	if err != nil {
		return model.Item{}, wrap("append", err)
	}
	m.log.Debug("item appended", zap.String("id", created.ID), zap.Int("position", created.Position))
	return created, nil
}

// List returns every item in position order.
func (m *Maintainer) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := m.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		items, err = tx.List(ctx)
		return err
	})
	if err != nil {
		return nil, wrap("list", err)
	}
	return items, nil
}

// Edit updates title and/or description. UpdatedAt is refreshed even when
// the patch leaves every value as it was.
func (m *Maintainer) Edit(ctx context.Context, id string, p model.Patch) (model.Item, error) {
	p, err := validatePatch(p)
	if err != nil {
		return model.Item{}, err
	}

	var updated model.Item
	err = m.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		it, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if p.Title != nil {
			it.Title = *p.Title
		}
		if p.Description != nil {
			it.Description = *p.Description
		}
		it.UpdatedAt = m.stamp()
		if err := tx.Update(ctx, it); err != nil {
			return err
		}
		updated = it
		return nil
	})
	if err != nil {
		return model.Item{}, wrap("edit", err)
	}
	m.log.Debug("item edited", zap.String("id", id))
	return updated, nil
}

// Remove deletes an item and closes the gap it leaves behind.
func (m *Maintainer) Remove(ctx context.Context, id string) error {
	err := m.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		it, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		last, err := tx.MaxPosition(ctx)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		if it.Position < last {
			return tx.Shift(ctx, it.Position+1, last, -1)
		}
		return nil
	})
	if err != nil {
		return wrap("remove", err)
	}
	m.log.Debug("item removed", zap.String("id", id))
	return nil
}

// Move places an item at target and shifts the band of items between its
// old and new place by one. Only the moved item gets a new UpdatedAt.
// The full list is returned in its new order.
func (m *Maintainer) Move(ctx context.Context, id string, target int) ([]model.Item, error) {
	if target < 0 {
		return nil, positionError("must not be negative")
	}

	var items []model.Item
	err := m.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		it, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.Count(ctx)
		if err != nil {
			return err
		}
		if target > n-1 {
			return positionError(fmt.Sprintf("%d is outside 0..%d", target, n-1))
		}
		if from, to, delta, ok := Band(it.Position, target); ok {
			if err := tx.Shift(ctx, from, to, delta); err != nil {
				return err
			}
			if err := tx.SetPosition(ctx, id, target, m.stamp()); err != nil {
				return err
			}
		}
		items, err = tx.List(ctx)
		return err
	})
	if err != nil {
		return nil, wrap("move", err)
	}
	m.log.Debug("item moved", zap.String("id", id), zap.Int("position", target))
	return items, nil
}

// Repair rewrites positions to 0..n-1 following the current order. Items
// already in place are not written. It returns the repaired list and the
// number of items that changed position.
func (m *Maintainer) Repair(ctx context.Context) ([]model.Item, int, error) {
	var (
		items   []model.Item
		changed int
	)
	err := m.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		items, err = tx.List(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			if items[i].Position == i {
				continue
			}
			if err := tx.SetPosition(ctx, items[i].ID, i, items[i].UpdatedAt); err != nil {
				return err
			}
			items[i].Position = i
			changed++
		}
		return nil
	})
	if err != nil {
		return nil, 0, wrap("repair", err)
	}
	if changed > 0 {
		m.log.Info("positions repaired", zap.Int("changed", changed))
	}
	return items, changed, nil
}
