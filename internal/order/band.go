package order

import (
	"fmt"

	"github.com/Makepad-fr/tada/internal/model"
)

// Band returns the shift band for moving an item from current to target:
// every other item with a position in [from, to] moves by delta.
// ok is false when nothing has to shift.
func Band(current, target int) (from, to, delta int, ok bool) {
	switch {
	case target > current:
		return current + 1, target, -1, true
	case target < current:
		return target, current - 1, 1, true
	}
	return 0, 0, 0, false
}

// Check verifies that items, already ordered by position, are dense.
func Check(items []model.Item) error {
	for i, it := range items {
		if it.Position != i {
			return fmt.Errorf("%w: want position %d, found %d (%s)", ErrInconsistent, i, it.Position, it.ID)
		}
	}
	return nil
}
