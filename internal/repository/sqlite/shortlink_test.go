package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
)

func TestAssignShortCode(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	entries := []model.IngredientEntry{{IngredientID: f.flour.ID, Amount: 1}}
	r1 := createTestRecipe(t, f.db, f.author, "r1", []int64{f.lunch.ID}, entries)
	r2 := createTestRecipe(t, f.db, f.author, "r2", []int64{f.lunch.ID}, entries)

	code, err := f.db.AssignShortCode(ctx, r1.ID, "abc123XYZ0")
	if err != nil {
		t.Fatalf("AssignShortCode() error = %v", err)
	}
	if code != "abc123XYZ0" {
		t.Errorf("AssignShortCode() = %q", code)
	}

	t.Run("second assignment keeps the first code", func(t *testing.T) {
		code, err := f.db.AssignShortCode(ctx, r1.ID, "zzzzzzzzzz")
		if err != nil {
			t.Fatalf("AssignShortCode() error = %v", err)
		}
		if code != "abc123XYZ0" {
			t.Errorf("AssignShortCode() = %q, want original code", code)
		}
	})

	t.Run("code taken by another recipe", func(t *testing.T) {
		_, err := f.db.AssignShortCode(ctx, r2.ID, "abc123XYZ0")
		if !errors.Is(err, apperror.ErrConflict) {
			t.Errorf("AssignShortCode() error = %v, want ErrConflict", err)
		}
	})

	t.Run("unknown recipe", func(t *testing.T) {
		_, err := f.db.AssignShortCode(ctx, "ghost", "qqqqqqqqqq")
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("AssignShortCode() error = %v, want ErrNotFound", err)
		}
	})
}

func TestShortCodeLookups(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	recipe := createTestRecipe(t, f.db, f.author, "r", []int64{f.lunch.ID},
		[]model.IngredientEntry{{IngredientID: f.flour.ID, Amount: 1}})

	code, err := f.db.ShortCode(ctx, recipe.ID)
	if err != nil || code != "" {
		t.Fatalf("ShortCode() before allocation = %q, %v", code, err)
	}

	if _, err := f.db.AssignShortCode(ctx, recipe.ID, "Q1w2E3r4T5"); err != nil {
		t.Fatal(err)
	}

	exists, err := f.db.ShortCodeExists(ctx, "Q1w2E3r4T5")
	if err != nil || !exists {
		t.Errorf("ShortCodeExists() = %v, %v", exists, err)
	}
	exists, _ = f.db.ShortCodeExists(ctx, "q1w2e3r4t5")
	if exists {
		t.Error("ShortCodeExists() must be case-sensitive")
	}

	got, err := f.db.GetRecipeByShortCode(ctx, "Q1w2E3r4T5")
	if err != nil {
		t.Fatalf("GetRecipeByShortCode() error = %v", err)
	}
	if got.ID != recipe.ID || got.ShortCode != "Q1w2E3r4T5" {
		t.Errorf("GetRecipeByShortCode() = %+v", got)
	}

	if _, err := f.db.GetRecipeByShortCode(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetRecipeByShortCode(missing) error = %v, want ErrNotFound", err)
	}
}
