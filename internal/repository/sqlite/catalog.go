package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.CatalogRepository = (*DB)(nil)

// ListTags returns every tag ordered by id. The tag set is small and
// unpaginated.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, slug FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

func (db *DB) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, slug FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("tag", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting tag %d: %w", id, err)
	}
	return &t, nil
}

// FindTags returns the tags among ids that exist. Missing ids are silently
// absent from the result; callers compare lengths.
func (db *DB) FindTags(ctx context.Context, ids []int64) ([]model.Tag, error) {
	if len(ids) == 0 {
		return []model.Tag{}, nil
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, slug FROM tags WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// ListIngredients returns ingredients whose name starts with namePrefix,
// ignoring case, ordered by name. An empty prefix lists the whole catalog.
//
// SQLite's lower() only folds ASCII, so names are folded in Go on insert
// and matched against the search_name column.
func (db *DB) ListIngredients(ctx context.Context, namePrefix string) ([]model.Ingredient, error) {
	prefix := strings.ToLower(namePrefix)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, measurement_unit FROM ingredients
		 WHERE substr(search_name, 1, length(?)) = ?
		 ORDER BY name, measurement_unit`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing ingredients: %w", err)
	}
	defer rows.Close()
	return scanIngredients(rows)
}

func (db *DB) GetIngredient(ctx context.Context, id int64) (*model.Ingredient, error) {
	var i model.Ingredient
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, measurement_unit FROM ingredients WHERE id = ?`, id,
	).Scan(&i.ID, &i.Name, &i.MeasurementUnit)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("ingredient", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting ingredient %d: %w", id, err)
	}
	return &i, nil
}

func (db *DB) FindIngredients(ctx context.Context, ids []int64) ([]model.Ingredient, error) {
	if len(ids) == 0 {
		return []model.Ingredient{}, nil
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, measurement_unit FROM ingredients
		 WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding ingredients: %w", err)
	}
	defer rows.Close()
	return scanIngredients(rows)
}

// EnsureTag inserts tag unless its name or slug is already taken, and fills
// tag.ID either way.
func (db *DB) EnsureTag(ctx context.Context, tag *model.Tag) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (name, slug) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		tag.Name, tag.Slug,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting tag %s: %w", tag.Slug, err)
	}
	created, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE slug = ? OR name = ? ORDER BY id LIMIT 1`,
		tag.Slug, tag.Name,
	).Scan(&tag.ID)
	if err != nil {
		return false, fmt.Errorf("sqlite: reading tag %s: %w", tag.Slug, err)
	}
	return created > 0, nil
}

// EnsureIngredient inserts ingredient unless the (name, unit) pair exists.
func (db *DB) EnsureIngredient(ctx context.Context, ingredient *model.Ingredient) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO ingredients (name, measurement_unit, search_name) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		ingredient.Name, ingredient.MeasurementUnit, strings.ToLower(ingredient.Name),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting ingredient %s: %w", ingredient.Name, err)
	}
	created, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id FROM ingredients WHERE name = ? AND measurement_unit = ?`,
		ingredient.Name, ingredient.MeasurementUnit,
	).Scan(&ingredient.ID)
	if err != nil {
		return false, fmt.Errorf("sqlite: reading ingredient %s: %w", ingredient.Name, err)
	}
	return created > 0, nil
}

func scanTags(rows *sql.Rows) ([]model.Tag, error) {
	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

func scanIngredients(rows *sql.Rows) ([]model.Ingredient, error) {
	ingredients := []model.Ingredient{}
	for rows.Next() {
		var i model.Ingredient
		if err := rows.Scan(&i.ID, &i.Name, &i.MeasurementUnit); err != nil {
			return nil, fmt.Errorf("sqlite: scanning ingredient row: %w", err)
		}
		ingredients = append(ingredients, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating ingredients: %w", err)
	}
	return ingredients, nil
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
