package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.ShortLinkRepository = (*DB)(nil)

// ShortCode returns the code allocated to the recipe, or "" if none has
// been allocated yet.
func (db *DB) ShortCode(ctx context.Context, recipeID string) (string, error) {
	var code sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT short_code FROM recipes WHERE id = ?`, recipeID,
	).Scan(&code)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("recipe", recipeID)
		}
		return "", fmt.Errorf("sqlite: reading short code of recipe %s: %w", recipeID, err)
	}
	return code.String, nil
}

func (db *DB) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM recipes WHERE short_code = ?)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking short code: %w", err)
	}
	return exists, nil
}

// AssignShortCode sets the code only while the recipe has none. The
// "short_code IS NULL" guard makes concurrent allocations for the same
// recipe converge on whichever write lands first; the UNIQUE index rejects
// a code already held by another recipe.
//
// TWO DIFFERENT RACES:
//
//   - Same recipe, two requests: both see no code and generate different
//     ones. The first UPDATE matches the row; the second matches nothing,
//     because short_code is no longer NULL. The loser then reads back and
//     returns the winner's code, so both callers get the same link.
//   - Different recipes, same random code: the pre-check in the service
//     passes for both, but the UNIQUE index lets only one commit. The
//     other gets apperror.ErrConflict and the service draws a new code.
func (db *DB) AssignShortCode(ctx context.Context, recipeID, code string) (string, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE recipes SET short_code = ? WHERE id = ? AND short_code IS NULL`,
		code, recipeID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", apperror.Conflict("short link", code)
		}
		return "", fmt.Errorf("sqlite: assigning short code to recipe %s: %w", recipeID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return code, nil
	}

	// Either the recipe is gone or it already has a code.
	existing, err := db.ShortCode(ctx, recipeID)
	if err != nil {
		return "", err
	}
	if existing == "" {
		return "", fmt.Errorf("sqlite: short code of recipe %s neither set nor assigned", recipeID)
	}
	return existing, nil
}

func (db *DB) GetRecipeByShortCode(ctx context.Context, code string) (*model.Recipe, error) {
	r, err := scanRecipe(db.conn.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.short_code = ?`, code,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("short link", code)
		}
		return nil, fmt.Errorf("sqlite: resolving short code %s: %w", code, err)
	}
	return r, nil
}
