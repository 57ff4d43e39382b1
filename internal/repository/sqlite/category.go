package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

var _ repository.CategoryRepository = (*DB)(nil)

func (db *DB) CreateCategory(ctx context.Context, category *model.Category) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?)`,
		category.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category", category.Name)
		}
		return fmt.Errorf("sqlite: creating category %q: %w", category.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading category id: %w", err)
	}
	category.ID = id
	return nil
}

// GetCategoryByName matches the name exactly (case-sensitive), as used in URLs.
func (db *DB) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", name)
		}
		return nil, fmt.Errorf("sqlite: getting category %q: %w", name, err)
	}
	return &c, nil
}

// ListCategories returns every category ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty catalog encodes as [] rather than null.
	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating category rows: %w", err)
	}
	return categories, nil
}

func (db *DB) UpdateCategory(ctx context.Context, category *model.Category) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ?`,
		category.Name, category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category", category.Name)
		}
		return fmt.Errorf("sqlite: updating category %d: %w", category.ID, err)
	}
	return requireAffected(result, "category", strconv.FormatInt(category.ID, 10))
}

// DeleteCategory removes the category row. Its items go with it through
// ON DELETE CASCADE.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting category %d: %w", id, err)
	}
	return requireAffected(result, "category", strconv.FormatInt(id, 10))
}
