package jsonstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
)

// JSON-backed storage. Single file, human-readable, portable.
// Atomic holds an exclusive lock on <path>.lock for the whole callback, so
// stores opened on the same file (in this process or another) take turns.
// It works on an in-memory copy and replaces the file through a rename only
// when the callback succeeds.

// DefaultFileName is used when no path is configured.
const DefaultFileName = "todos.json"

// lockRetry is how often a waiting Atomic polls the file lock.
const lockRetry = 5 * time.Millisecond

// Store is an order.Store over one JSON file.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

var _ order.Store = (*Store)(nil)

// Open returns a store for path. The file is created on the first write.
func Open(path string) (*Store, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		path = filepath.Join(wd, DefaultFileName)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	return &Store{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the data file location.
func (s *Store) Path() string { return s.path }

// Close is a no-op; nothing stays open between calls.
func (s *Store) Close() error { return nil }

// Atomic implements order.Store.
func (s *Store) Atomic(ctx context.Context, fn func(context.Context, order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("lock file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock file: %s is held", s.lock.Path())
	}
	defer func() { _ = s.lock.Unlock() }()

	items, err := s.load()
	if err != nil {
		return err
	}
	tx := &tx{items: items}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}
	return s.save(tx.items)
}

func (s *Store) load() ([]model.Item, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Item{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var items []model.Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return items, nil
}

func (s *Store) save(items []model.Item) error {
	slices.SortStableFunc(items, model.ByPosition)
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), ".todos-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if err := writeSynced(f, b); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// writeSynced writes b, flushes it to disk and closes f.
func writeSynced(f *os.File, b []byte) error {
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// tx is the working copy handed to one Atomic callback.
type tx struct {
	items []model.Item
	dirty bool
}

func (t *tx) index(id string) int {
	return slices.IndexFunc(t.items, func(it model.Item) bool { return it.ID == id })
}

func (t *tx) MaxPosition(context.Context) (int, error) {
	last := -1
	for _, it := range t.items {
		if it.Position > last {
			last = it.Position
		}
	}
	return last, nil
}

func (t *tx) Count(context.Context) (int, error) { return len(t.items), nil }

func (t *tx) Get(_ context.Context, id string) (model.Item, error) {
	i := t.index(id)
	if i < 0 {
		return model.Item{}, fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	return t.items[i], nil
}

func (t *tx) List(context.Context) ([]model.Item, error) {
	out := slices.Clone(t.items)
	slices.SortStableFunc(out, model.ByPosition)
	if out == nil {
		out = []model.Item{}
	}
	return out, nil
}

func (t *tx) Insert(_ context.Context, it model.Item) (model.Item, error) {
	it.ID = ulid.Make().String()
	t.items = append(t.items, it)
	t.dirty = true
	return it, nil
}

func (t *tx) Update(_ context.Context, it model.Item) error {
	i := t.index(it.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", order.ErrNotFound, it.ID)
	}
	t.items[i].Title = it.Title
	t.items[i].Description = it.Description
	t.items[i].UpdatedAt = it.UpdatedAt
	t.dirty = true
	return nil
}

func (t *tx) SetPosition(_ context.Context, id string, pos int, updatedAt time.Time) error {
	i := t.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	t.items[i].Position = pos
	t.items[i].UpdatedAt = updatedAt
	t.dirty = true
	return nil
}

func (t *tx) Shift(_ context.Context, from, to, delta int) error {
	for i := range t.items {
		if p := t.items[i].Position; p >= from && p <= to {
			t.items[i].Position = p + delta
			t.dirty = true
		}
	}
	return nil
}

func (t *tx) Delete(_ context.Context, id string) error {
	i := t.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	t.items = slices.Delete(t.items, i, i+1)
	t.dirty = true
	return nil
}
