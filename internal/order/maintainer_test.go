package order_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
)

type backend struct {
	name string
	open func(t *testing.T) order.Store
}

var backends = []backend{
	{name: "json", open: func(t *testing.T) order.Store {
		s, err := jsonstore.Open(filepath.Join(t.TempDir(), "todos.json"))
		require.NoError(t, err)
		return s
	}},
	{name: "sqlite3", open: openSQLite(sqlitestore.DriverCgo)},
	{name: "sqlite", open: openSQLite(sqlitestore.DriverPure)},
}

func openSQLite(driver string) func(t *testing.T) order.Store {
	return func(t *testing.T) order.Store {
		s, err := sqlitestore.Open(context.Background(), sqlitestore.Options{
			Driver: driver,
			Path:   filepath.Join(t.TempDir(), "todos.db"),
		})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store order.Store, m *order.Maintainer)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			fn(t, store, order.New(store, order.WithClock(newClock().Now)))
		})
	}
}

func seed(t *testing.T, m *order.Maintainer, titles ...string) []model.Item {
	t.Helper()
	out := make([]model.Item, 0, len(titles))
	for _, title := range titles {
		it, err := m.Append(context.Background(), model.Draft{Title: title, Description: title + " desc"})
		require.NoError(t, err)
		out = append(out, it)
	}
	return out
}

// layout renders a list as "title@position" for compact comparisons.
func layout(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = fmt.Sprintf("%s@%d", it.Title, it.Position)
	}
	return out
}

func list(t *testing.T, m *order.Maintainer) []model.Item {
	t.Helper()
	items, err := m.List(context.Background())
	require.NoError(t, err)
	return items
}

func ptr(s string) *string { return &s }

func TestAppendOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		created := seed(t, m, "T1", "T2", "T3")

		for i, it := range created {
			assert.Equal(t, i, it.Position)
			assert.NotEmpty(t, it.ID)
			assert.Equal(t, it.CreatedAt, it.UpdatedAt)
		}
		assert.Equal(t, []string{"T1@0", "T2@1", "T3@2"}, layout(list(t, m)))
	})
}

func TestAppendRejectsEmptyTitle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		_, err := m.Append(context.Background(), model.Draft{Title: "   "})
		require.Error(t, err)
		assert.True(t, order.IsValidation(err))
		assert.Empty(t, list(t, m))
	})
}

func TestAppendKeepsEmptyDescription(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		it, err := m.Append(context.Background(), model.Draft{Title: "Buy milk"})
		require.NoError(t, err)
		assert.Equal(t, "", it.Description)

		got := list(t, m)
		require.Len(t, got, 1)
		assert.Equal(t, it.ID, got[0].ID)
		assert.True(t, it.CreatedAt.Equal(got[0].CreatedAt))
	})
}

func TestRemoveCompacts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B", "C", "D")
		before := list(t, m)

		require.NoError(t, m.Remove(context.Background(), items[1].ID))

		after := list(t, m)
		assert.Equal(t, []string{"A@0", "C@1", "D@2"}, layout(after))
		// shifted neighbours keep their timestamps
		for _, it := range after {
			for _, old := range before {
				if old.ID == it.ID {
					assert.True(t, old.UpdatedAt.Equal(it.UpdatedAt), it.Title)
				}
			}
		}
	})
}

func TestRemoveLast(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B")
		require.NoError(t, m.Remove(context.Background(), items[1].ID))
		require.NoError(t, m.Remove(context.Background(), items[0].ID))
		assert.Empty(t, list(t, m))

		it, err := m.Append(context.Background(), model.Draft{Title: "C"})
		require.NoError(t, err)
		assert.Equal(t, 0, it.Position)
	})
}

func TestMove(t *testing.T) {
	tests := []struct {
		name   string
		from   int
		target int
		want   []string
	}{
		{name: "down", from: 0, target: 2, want: []string{"B@0", "C@1", "A@2", "D@3"}},
		{name: "up", from: 2, target: 0, want: []string{"C@0", "A@1", "B@2", "D@3"}},
		{name: "to last", from: 0, target: 3, want: []string{"B@0", "C@1", "D@2", "A@3"}},
		{name: "last to first", from: 3, target: 0, want: []string{"D@0", "A@1", "B@2", "C@3"}},
		{name: "adjacent", from: 1, target: 2, want: []string{"A@0", "C@1", "B@2", "D@3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
				items := seed(t, m, "A", "B", "C", "D")

				got, err := m.Move(context.Background(), items[tt.from].ID, tt.target)
				require.NoError(t, err)
				if diff := cmp.Diff(tt.want, layout(got)); diff != "" {
					t.Errorf("Move() mismatch (-want +got):\n%s", diff)
				}
				assert.Equal(t, layout(got), layout(list(t, m)))
			})
		})
	}
}

func TestMoveOnlyBumpsMovedItem(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B", "C", "D")

		got, err := m.Move(context.Background(), items[0].ID, 2)
		require.NoError(t, err)

		byID := map[string]model.Item{}
		for _, it := range got {
			byID[it.ID] = it
		}
		assert.True(t, byID[items[0].ID].UpdatedAt.After(items[0].UpdatedAt))
		for _, old := range items[1:] {
			assert.True(t, old.UpdatedAt.Equal(byID[old.ID].UpdatedAt), old.Title)
		}
	})
}

func TestMoveSamePositionIsNoop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B", "C", "D")
		before := list(t, m)

		got, err := m.Move(context.Background(), items[1].ID, 1)
		require.NoError(t, err)

		require.Len(t, got, len(before))
		for i := range before {
			assert.Equal(t, before[i].ID, got[i].ID)
			assert.Equal(t, before[i].Position, got[i].Position)
			assert.True(t, before[i].UpdatedAt.Equal(got[i].UpdatedAt))
		}
	})
}

func TestMoveRejectsOutOfRange(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B", "C")

		for _, target := range []int{-1, 3, 100} {
			_, err := m.Move(context.Background(), items[0].ID, target)
			require.Error(t, err, "target %d", target)
			assert.True(t, order.IsValidation(err), "target %d: %v", target, err)
		}
		assert.Equal(t, []string{"A@0", "B@1", "C@2"}, layout(list(t, m)))
	})
}

func TestUnknownIDIsNotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		seed(t, m, "A", "B", "C")
		before := list(t, m)
		ctx := context.Background()

		_, err := m.Edit(ctx, "missing", model.Patch{Title: ptr("x")})
		assert.ErrorIs(t, err, order.ErrNotFound)

		err = m.Remove(ctx, "missing")
		assert.ErrorIs(t, err, order.ErrNotFound)

		_, err = m.Move(ctx, "missing", 0)
		assert.ErrorIs(t, err, order.ErrNotFound)

		after := list(t, m)
		require.Len(t, after, len(before))
		for i := range before {
			assert.Equal(t, before[i].Position, after[i].Position)
			assert.True(t, before[i].UpdatedAt.Equal(after[i].UpdatedAt))
		}
	})
}

func TestEditPartial(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B")

		got, err := m.Edit(context.Background(), items[1].ID, model.Patch{Title: ptr("  B2 ")})
		require.NoError(t, err)
		assert.Equal(t, "B2", got.Title)
		assert.Equal(t, "B desc", got.Description)
		assert.Equal(t, 1, got.Position)
		assert.True(t, got.UpdatedAt.After(items[1].UpdatedAt))

		stored := list(t, m)[1]
		assert.Equal(t, "B2", stored.Title)
		assert.Equal(t, "B desc", stored.Description)
		assert.True(t, got.UpdatedAt.Equal(stored.UpdatedAt))
	})
}

func TestEditWithoutChangesStillBumps(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A")

		got, err := m.Edit(context.Background(), items[0].ID, model.Patch{})
		require.NoError(t, err)
		assert.Equal(t, "A", got.Title)
		assert.True(t, got.UpdatedAt.After(items[0].UpdatedAt))
	})
}

func TestEditRejectsEmptyTitle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A")

		_, err := m.Edit(context.Background(), items[0].ID, model.Patch{Title: ptr(""), Description: ptr("new")})
		assert.True(t, order.IsValidation(err))
		assert.Equal(t, "A desc", list(t, m)[0].Description)
	})
}

func TestDensityUnderRandomMutations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		ctx := context.Background()
		rng := rand.New(rand.NewPCG(7, 11))
		var want []string // expected title order

		for step := 0; step < 150; step++ {
			switch op := rng.IntN(3); {
			case op == 0 || len(want) == 0:
				title := fmt.Sprintf("t%d", step)
				_, err := m.Append(ctx, model.Draft{Title: title})
				require.NoError(t, err)
				want = append(want, title)
			case op == 1:
				items := list(t, m)
				i := rng.IntN(len(items))
				require.NoError(t, m.Remove(ctx, items[i].ID))
				want = append(want[:i], want[i+1:]...)
			default:
				items := list(t, m)
				i, target := rng.IntN(len(items)), rng.IntN(len(items))
				_, err := m.Move(ctx, items[i].ID, target)
				require.NoError(t, err)
				title := want[i]
				want = append(want[:i], want[i+1:]...)
				want = append(want[:target], append([]string{title}, want[target:]...)...)
			}

			items := list(t, m)
			require.NoError(t, order.Check(items), "step %d", step)
			titles := make([]string, len(items))
			for i, it := range items {
				titles[i] = it.Title
			}
			require.Equal(t, want, titles, "step %d", step)
		}
	})
}

// failingStore forwards to a real store but fails every Shift.
type failingStore struct {
	order.Store
}

type failingTx struct {
	order.Tx
}

var errInjected = errors.New("injected shift failure")

func (f failingStore) Atomic(ctx context.Context, fn func(context.Context, order.Tx) error) error {
	return f.Store.Atomic(ctx, func(ctx context.Context, tx order.Tx) error {
		return fn(ctx, failingTx{Tx: tx})
	})
}

func (failingTx) Shift(context.Context, int, int, int) error { return errInjected }

func TestFailedShiftLeavesListUntouched(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B", "C", "D")
		before := layout(list(t, m))

		broken := order.New(failingStore{Store: store})
		ctx := context.Background()

		_, err := broken.Move(ctx, items[0].ID, 3)
		require.Error(t, err)
		assert.True(t, order.IsStorage(err))
		assert.ErrorIs(t, err, errInjected)

		err = broken.Remove(ctx, items[1].ID)
		assert.True(t, order.IsStorage(err))

		assert.Equal(t, before, layout(list(t, m)))
	})
}

func TestRepair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	raw := `[
  {"id": "01A", "title": "A", "description": "", "position": 0, "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"},
  {"id": "01B", "title": "B", "description": "", "position": 4, "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"},
  {"id": "01C", "title": "C", "description": "", "position": 4, "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}
]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	store, err := jsonstore.Open(path)
	require.NoError(t, err)
	m := order.New(store)
	ctx := context.Background()

	_, err = m.Append(ctx, model.Draft{Title: "D"})
	require.Error(t, err)
	assert.ErrorIs(t, err, order.ErrInconsistent)
	assert.True(t, order.IsStorage(err))

	items, changed, err := m.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, []string{"A@0", "B@1", "C@2"}, layout(items))
	assert.Equal(t, "2026-01-01T00:00:00Z", items[1].UpdatedAt.Format(time.RFC3339))

	it, err := m.Append(ctx, model.Draft{Title: "D"})
	require.NoError(t, err)
	assert.Equal(t, 3, it.Position)
}

func TestConcurrentMutationsStayDense(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ order.Store, m *order.Maintainer) {
		items := seed(t, m, "A", "B", "C", "D", "E", "F")
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_, err := m.Move(ctx, items[(i+j)%len(items)].ID, (i*j)%len(items))
					assert.NoError(t, err)
				}
			}(i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := m.Append(ctx, model.Draft{Title: fmt.Sprintf("n%d", j)})
				assert.NoError(t, err)
			}
		}()
		wg.Wait()

		got := list(t, m)
		assert.Len(t, got, 11)
		assert.NoError(t, order.Check(got))
	})
}
