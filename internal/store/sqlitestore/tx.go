package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
)

const selectColumns = `id, title, description, position, created_at, updated_at`

// tx adapts a *sql.Tx to order.Tx.
type tx struct {
	tx *sql.Tx
}

func (t *tx) MaxPosition(ctx context.Context) (int, error) {
	var last int
	err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) FROM todos`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("max position: %w", err)
	}
	return last, nil
}

func (t *tx) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (t *tx) Get(ctx context.Context, id string) (model.Item, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM todos WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get %s: %w", id, err)
	}
	return it, nil
}

func (t *tx) List(ctx context.Context) ([]model.Item, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM todos
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list: scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows: %w", err)
	}
	return items, nil
}

func (t *tx) Insert(ctx context.Context, it model.Item) (model.Item, error) {
	it.ID = ulid.Make().String()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO todos (id, title, description, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		it.ID,
		it.Title,
		it.Description,
		it.Position,
		it.CreatedAt.UnixNano(),
		it.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return model.Item{}, fmt.Errorf("insert: %w", err)
	}
	return it, nil
}

func (t *tx) Update(ctx context.Context, it model.Item) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE todos SET title = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, it.Title, it.Description, it.UpdatedAt.UnixNano(), it.ID)
	if err != nil {
		return fmt.Errorf("update %s: %w", it.ID, err)
	}
	return expectOne(res, it.ID)
}

func (t *tx) SetPosition(ctx context.Context, id string, pos int, updatedAt time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE todos SET position = ?, updated_at = ?
		WHERE id = ?
	`, pos, updatedAt.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("set position %s: %w", id, err)
	}
	return expectOne(res, id)
}

func (t *tx) Shift(ctx context.Context, from, to, delta int) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE todos SET position = position + ?
		WHERE position >= ? AND position <= ?
	`, delta, from, to)
	if err != nil {
		return fmt.Errorf("shift [%d,%d] by %d: %w", from, to, delta, err)
	}
	return nil
}

func (t *tx) Delete(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return expectOne(res, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (model.Item, error) {
	var (
		it               model.Item
		created, updated int64
	)
	if err := s.Scan(&it.ID, &it.Title, &it.Description, &it.Position, &created, &updated); err != nil {
		return model.Item{}, err
	}
	it.CreatedAt = time.Unix(0, created).UTC()
	it.UpdatedAt = time.Unix(0, updated).UTC()
	return it, nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	return nil
}
