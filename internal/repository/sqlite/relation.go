package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var (
	_ repository.RelationRepository     = (*DB)(nil)
	_ repository.ShoppingListRepository = (*DB)(nil)
)

// AddRelation inserts a favorite or cart row. The primary key on
// (kind, user, recipe) makes a second insert fail, which is reported as
// apperror.ErrConflict rather than silently ignored.
func (db *DB) AddRelation(ctx context.Context, kind model.RelationKind, userID, recipeID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO recipe_relations (kind, user_id, recipe_id, created_at) VALUES (?, ?, ?, ?)`,
		string(kind), userID, recipeID, time.Now(),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.AlreadyExists(fmt.Sprintf("recipe is already in %s", kind.Label()))
		case isForeignKeyViolation(err):
			return apperror.NotFound("recipe", recipeID)
		}
		return fmt.Errorf("sqlite: adding recipe %s to %s: %w", recipeID, kind, err)
	}
	return nil
}

// RemoveRelation deletes the row, or returns apperror.ErrNotFound when the
// recipe was not in the collection.
func (db *DB) RemoveRelation(ctx context.Context, kind model.RelationKind, userID, recipeID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM recipe_relations WHERE kind = ? AND user_id = ? AND recipe_id = ?`,
		string(kind), userID, recipeID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing recipe %s from %s: %w", recipeID, kind, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("recipe is not in %s", kind.Label()),
		}
	}
	return nil
}

func (db *DB) HasRelation(ctx context.Context, kind model.RelationKind, userID, recipeID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM recipe_relations WHERE kind = ? AND user_id = ? AND recipe_id = ?
		)`,
		string(kind), userID, recipeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking %s relation: %w", kind, err)
	}
	return exists, nil
}

// ShoppingList consolidates the ingredients of every recipe in the user's
// cart. Amounts are summed per (name, unit), so the same ingredient
// measured in different units stays on separate lines.
func (db *DB) ShoppingList(ctx context.Context, userID string) ([]model.ShoppingItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.name, i.measurement_unit, SUM(ri.amount)
		 FROM recipe_relations rr
		 JOIN recipe_ingredients ri ON ri.recipe_id = rr.recipe_id
		 JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE rr.kind = ? AND rr.user_id = ?
		 GROUP BY i.name, i.measurement_unit
		 ORDER BY i.name, i.measurement_unit`,
		string(model.RelationCart), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building shopping list: %w", err)
	}
	defer rows.Close()

	items := []model.ShoppingItem{}
	for rows.Next() {
		var item model.ShoppingItem
		if err := rows.Scan(&item.Name, &item.MeasurementUnit, &item.Amount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning shopping item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating shopping items: %w", err)
	}
	return items, nil
}
