package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

var _ repository.ItemRepository = (*DB)(nil)

// Every item query joins its category so CategoryName is always populated.
const itemSelect = `
	SELECT i.id, i.name, i.description, i.created_at, i.category_id, c.name
	FROM items i
	JOIN categories c ON c.id = i.category_id`

// Newest first; id breaks ties between rows written in the same instant.
const itemOrder = ` ORDER BY i.created_at DESC, i.id DESC`

// CreateItem inserts an item and sets ID and CreatedAt. CreatedAt is never
// written again.
func (db *DB) CreateItem(ctx context.Context, item *model.Item) error {
	item.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO items (name, description, created_at, category_id) VALUES (?, ?, ?, ?)`,
		item.Name,
		item.Description,
		item.CreatedAt,
		item.CategoryID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("item", item.Name)
		}
		return fmt.Errorf("sqlite: creating item %q: %w", item.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading item id: %w", err)
	}
	item.ID = id
	return nil
}

func (db *DB) GetItemByName(ctx context.Context, name string) (*model.Item, error) {
	item, err := scanItem(db.conn.QueryRowContext(ctx, itemSelect+` WHERE i.name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("item", name)
		}
		return nil, fmt.Errorf("sqlite: getting item %q: %w", name, err)
	}
	return item, nil
}

// GetItemInCategory finds an item by name only if it belongs to the named
// category.
func (db *DB) GetItemInCategory(ctx context.Context, categoryName, itemName string) (*model.Item, error) {
	item, err := scanItem(db.conn.QueryRowContext(ctx,
		itemSelect+` WHERE c.name = ? AND i.name = ?`,
		categoryName, itemName,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("item", categoryName+"/"+itemName)
		}
		return nil, fmt.Errorf("sqlite: getting item %q in %q: %w", itemName, categoryName, err)
	}
	return item, nil
}

// ListItems returns items across all categories, newest first.
func (db *DB) ListItems(ctx context.Context, opts repository.ListOptions) ([]model.Item, error) {
	if opts.Limit <= 0 {
		return db.queryItems(ctx, itemSelect+itemOrder)
	}
	return db.queryItems(ctx, itemSelect+itemOrder+` LIMIT ?`, opts.Limit)
}

func (db *DB) ListItemsByCategory(ctx context.Context, categoryID int64) ([]model.Item, error) {
	return db.queryItems(ctx, itemSelect+` WHERE i.category_id = ?`+itemOrder, categoryID)
}

func (db *DB) CountItemsByCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE category_id = ?`, categoryID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting items of category %d: %w", categoryID, err)
	}
	return n, nil
}

// UpdateItem writes name, description and category. created_at is left alone.
func (db *DB) UpdateItem(ctx context.Context, item *model.Item) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, category_id = ? WHERE id = ?`,
		item.Name,
		item.Description,
		item.CategoryID,
		item.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("item", item.Name)
		}
		return fmt.Errorf("sqlite: updating item %d: %w", item.ID, err)
	}
	return requireAffected(result, "item", strconv.FormatInt(item.ID, 10))
}

func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %d: %w", id, err)
	}
	return requireAffected(result, "item", strconv.FormatInt(id, 10))
}

// DeleteItemsByCategory removes every item of a category and reports how
// many rows went.
func (db *DB) DeleteItemsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM items WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting items of category %d: %w", categoryID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

func (db *DB) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating item rows: %w", err)
	}
	return items, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	var item model.Item
	if err := s.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.CreatedAt,
		&item.CategoryID,
		&item.CategoryName,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
