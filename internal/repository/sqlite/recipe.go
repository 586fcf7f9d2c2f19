package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.RecipeRepository = (*DB)(nil)

const recipeColumns = `r.id, r.author_id, r.name, r.text, r.image, r.cooking_time, COALESCE(r.short_code, ''), r.created_at, r.updated_at`

func scanRecipe(row rowScanner) (*model.Recipe, error) {
	var r model.Recipe
	err := row.Scan(
		&r.ID,
		&r.AuthorID,
		&r.Name,
		&r.Text,
		&r.Image,
		&r.CookingTime,
		&r.ShortCode,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecipe inserts the recipe row and all of its tag and ingredient
// associations in one transaction. Either everything is written or nothing is.
func (db *DB) CreateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, ingredients []model.IngredientEntry) error {
	now := time.Now()
	recipe.ID = xid.New().String()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (id, author_id, name, text, image, cooking_time, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			recipe.ID,
			recipe.AuthorID,
			recipe.Name,
			recipe.Text,
			recipe.Image,
			recipe.CookingTime,
			recipe.CreatedAt,
			recipe.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", recipe.AuthorID)
			}
			return fmt.Errorf("sqlite: inserting recipe: %w", err)
		}
		return insertAssociations(ctx, tx, recipe.ID, tagIDs, ingredients)
	})
}

// UpdateRecipe overwrites the recipe's scalar fields and replaces its
// association sets wholesale. The old rows are deleted and the new ones
// inserted inside the same transaction, so readers never see a mix.
//
// DELETE-THEN-INSERT REPLACEMENT:
// An update always carries the complete tag and ingredient lists, so there
// is nothing to diff: every existing association row is removed and the
// submitted set inserted, with position recording the submitted order.
// If any insert fails (an unknown ingredient id hitting the foreign key,
// say) withTx rolls back, and the DELETEs are undone with it. The recipe
// then keeps exactly the associations it had before the request.
func (db *DB) UpdateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, ingredients []model.IngredientEntry) error {
	recipe.UpdatedAt = time.Now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE recipes
			 SET name = ?, text = ?, image = ?, cooking_time = ?, updated_at = ?
			 WHERE id = ?`,
			recipe.Name,
			recipe.Text,
			recipe.Image,
			recipe.CookingTime,
			recipe.UpdatedAt,
			recipe.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating recipe %s: %w", recipe.ID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("recipe", recipe.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, recipe.ID); err != nil {
			return fmt.Errorf("sqlite: clearing recipe tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, recipe.ID); err != nil {
			return fmt.Errorf("sqlite: clearing recipe ingredients: %w", err)
		}
		return insertAssociations(ctx, tx, recipe.ID, tagIDs, ingredients)
	})
}

func insertAssociations(ctx context.Context, tx *sql.Tx, recipeID string, tagIDs []int64, ingredients []model.IngredientEntry) error {
	for pos, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_tags (recipe_id, tag_id, position) VALUES (?, ?, ?)`,
			recipeID, tagID, pos,
		)
		if err != nil {
			switch {
			case isForeignKeyViolation(err):
				return apperror.ValidationFailed("tags", fmt.Sprintf("tag %d does not exist", tagID))
			case isUniqueViolation(err):
				return apperror.ValidationFailed("tags", fmt.Sprintf("tag %d is listed more than once", tagID))
			}
			return fmt.Errorf("sqlite: inserting recipe tag: %w", err)
		}
	}

	for pos, entry := range ingredients {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount, position) VALUES (?, ?, ?, ?)`,
			recipeID, entry.IngredientID, entry.Amount, pos,
		)
		if err != nil {
			switch {
			case isForeignKeyViolation(err):
				return apperror.ValidationFailed("ingredients", fmt.Sprintf("ingredient %d does not exist", entry.IngredientID))
			case isUniqueViolation(err):
				return apperror.ValidationFailed("ingredients", fmt.Sprintf("ingredient %d is listed more than once", entry.IngredientID))
			}
			return fmt.Errorf("sqlite: inserting recipe ingredient: %w", err)
		}
	}
	return nil
}

func (db *DB) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	r, err := scanRecipe(db.conn.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting recipe %s: %w", id, err)
	}
	return r, nil
}

// DeleteRecipe removes the recipe. Tag, ingredient, favorite and cart rows
// go with it through ON DELETE CASCADE.
func (db *DB) DeleteRecipe(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting recipe %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("recipe", id)
	}
	return nil
}

// ListRecipes returns one page of recipes matching filter, newest first,
// plus the total number of matches.
//
// Tag slugs are OR-ed: a recipe matches if it carries any of them.
// Each filter becomes an EXISTS subquery, so a recipe with several
// matching tags is still returned once.
func (db *DB) ListRecipes(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 6
	}
	if limit > 100 {
		limit = 100
	}
	offset := max(filter.Offset, 0)

	var (
		conds []string
		args  []any
	)
	if filter.AuthorID != "" {
		conds = append(conds, `r.author_id = ?`)
		args = append(args, filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
			WHERE rt.recipe_id = r.id AND t.slug IN (`+placeholders(len(filter.TagSlugs))+`))`)
		for _, slug := range filter.TagSlugs {
			args = append(args, slug)
		}
	}
	if filter.FavoritedBy != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM recipe_relations rr
			WHERE rr.recipe_id = r.id AND rr.kind = ? AND rr.user_id = ?)`)
		args = append(args, string(model.RelationFavorite), filter.FavoritedBy)
	}
	if filter.InCartOf != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM recipe_relations rr
			WHERE rr.recipe_id = r.id AND rr.kind = ? AND rr.user_id = ?)`)
		args = append(args, string(model.RelationCart), filter.InCartOf)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting recipes: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes r`+where+`
		 ORDER BY r.created_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]model.Recipe, 0, limit)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning recipe row: %w", err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating recipes: %w", err)
	}
	return recipes, total, nil
}

// RecipeTags returns the recipe's tags in the order they were submitted.
func (db *DB) RecipeTags(ctx context.Context, recipeID string) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug
		 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
		 WHERE rt.recipe_id = ?
		 ORDER BY rt.position`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags of recipe %s: %w", recipeID, err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// RecipeIngredients returns the recipe's ingredients joined with amounts,
// in submission order.
func (db *DB) RecipeIngredients(ctx context.Context, recipeID string) ([]model.RecipeIngredient, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.id, i.name, i.measurement_unit, ri.amount
		 FROM recipe_ingredients ri JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE ri.recipe_id = ?
		 ORDER BY ri.position`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing ingredients of recipe %s: %w", recipeID, err)
	}
	defer rows.Close()

	items := []model.RecipeIngredient{}
	for rows.Next() {
		var ri model.RecipeIngredient
		if err := rows.Scan(&ri.ID, &ri.Name, &ri.MeasurementUnit, &ri.Amount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning recipe ingredient row: %w", err)
		}
		items = append(items, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recipe ingredients: %w", err)
	}
	return items, nil
}
