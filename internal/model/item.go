package model

import "time"

// Item is the domain model for a todo entry.
// Position is the zero-based place of the item in the single list.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Draft carries the caller-supplied fields of a new item.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Patch is a partial edit; nil fields are left alone.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil
}

// ByPosition orders items the way every listing does: position, then id.
func ByPosition(a, b Item) int {
	if a.Position != b.Position {
		if a.Position < b.Position {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
