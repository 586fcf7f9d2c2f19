package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/storage"
	"github.com/sakif/foodgram/internal/validation"
)

const recipeImageDir = "recipes/images"

// RecipeService owns the recipe aggregate: a recipe row plus its tag and
// ingredient associations. A draft is validated completely, including the
// catalog lookups and image decoding, before anything is written; the
// repository then writes the row and its associations in one transaction.
type RecipeService struct {
	repos         Repositories
	images        storage.Store
	views         views
	maxImageBytes int
	logger        *slog.Logger
}

func NewRecipeService(repos Repositories, images storage.Store, maxImageBytes int, logger *slog.Logger) *RecipeService {
	return &RecipeService{
		repos:         repos,
		images:        images,
		views:         views{subs: repos.Subscriptions, images: images},
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// Create validates draft and stores a new recipe owned by authorID.
func (s *RecipeService) Create(ctx context.Context, authorID string, draft model.RecipeDraft) (*model.RecipeDetail, error) {
	if authorID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	if draft.Image == "" {
		return nil, apperror.ValidationFailed("image", "image is required")
	}
	if err := s.validateDraft(ctx, draft); err != nil {
		return nil, err
	}
	img, err := storage.DecodeDataURI("image", draft.Image, s.maxImageBytes)
	if err != nil {
		return nil, err
	}

	ref, err := s.images.Save(ctx, recipeImageDir, img)
	if err != nil {
		return nil, fmt.Errorf("service/recipe: storing image: %w", err)
	}

	recipe := &model.Recipe{
		AuthorID:    authorID,
		Name:        draft.Name,
		Text:        draft.Text,
		Image:       ref,
		CookingTime: draft.CookingTime,
	}
	if err := s.repos.Recipes.CreateRecipe(ctx, recipe, draft.TagIDs, draft.Ingredients); err != nil {
		discardImage(ctx, s.images, s.logger, ref)
		return nil, err
	}

	metrics.RecipesWritten.WithLabelValues("create").Inc()
	s.logger.Info("recipe created",
		slog.String("recipeID", recipe.ID),
		slog.String("authorID", authorID),
	)
	return s.detail(ctx, authorID, recipe)
}

// Update replaces every field and the full association set of a recipe.
// Only the author may update; an empty draft.Image keeps the current image.
func (s *RecipeService) Update(ctx context.Context, userID, recipeID string, draft model.RecipeDraft) (*model.RecipeDetail, error) {
	existing, err := s.authorize(ctx, userID, recipeID, "change")
	if err != nil {
		return nil, err
	}
	if err := s.validateDraft(ctx, draft); err != nil {
		return nil, err
	}

	var img storage.Image
	if draft.Image != "" {
		if img, err = storage.DecodeDataURI("image", draft.Image, s.maxImageBytes); err != nil {
			return nil, err
		}
	}

	updated := *existing
	updated.Name = draft.Name
	updated.Text = draft.Text
	updated.CookingTime = draft.CookingTime

	var newRef string
	if draft.Image != "" {
		if newRef, err = s.images.Save(ctx, recipeImageDir, img); err != nil {
			return nil, fmt.Errorf("service/recipe: storing image: %w", err)
		}
		updated.Image = newRef
	}

	if err := s.repos.Recipes.UpdateRecipe(ctx, &updated, draft.TagIDs, draft.Ingredients); err != nil {
		discardImage(ctx, s.images, s.logger, newRef)
		return nil, err
	}
	if newRef != "" {
		discardImage(ctx, s.images, s.logger, existing.Image)
	}

	metrics.RecipesWritten.WithLabelValues("update").Inc()
	s.logger.Info("recipe updated", slog.String("recipeID", recipeID))
	return s.detail(ctx, userID, &updated)
}

// Delete removes a recipe. Its associations, favorites and cart entries go
// with it.
func (s *RecipeService) Delete(ctx context.Context, userID, recipeID string) error {
	existing, err := s.authorize(ctx, userID, recipeID, "delete")
	if err != nil {
		return err
	}
	if err := s.repos.Recipes.DeleteRecipe(ctx, recipeID); err != nil {
		return err
	}
	discardImage(ctx, s.images, s.logger, existing.Image)

	metrics.RecipesWritten.WithLabelValues("delete").Inc()
	s.logger.Info("recipe deleted", slog.String("recipeID", recipeID))
	return nil
}

// Get returns the full view of a recipe as seen by viewerID ("" for anonymous).
func (s *RecipeService) Get(ctx context.Context, viewerID, recipeID string) (*model.RecipeDetail, error) {
	recipe, err := s.repos.Recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, viewerID, recipe)
}

// List returns one page of recipes and the total number of matches.
// The favorite and cart filters only apply to the viewer's own collections
// and are dropped for anonymous viewers.
func (s *RecipeService) List(ctx context.Context, viewerID string, filter model.RecipeFilter) ([]model.RecipeDetail, int, error) {
	if viewerID == "" {
		filter.FavoritedBy = ""
		filter.InCartOf = ""
	}
	recipes, total, err := s.repos.Recipes.ListRecipes(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	details := make([]model.RecipeDetail, 0, len(recipes))
	for i := range recipes {
		d, err := s.detail(ctx, viewerID, &recipes[i])
		if err != nil {
			return nil, 0, err
		}
		details = append(details, *d)
	}
	return details, total, nil
}

func (s *RecipeService) authorize(ctx context.Context, userID, recipeID, action string) (*model.Recipe, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	recipe, err := s.repos.Recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, apperror.Forbidden(fmt.Sprintf("only the author can %s this recipe", action))
	}
	return recipe, nil
}

// validateDraft checks field formats, then that the tag and ingredient
// lists are non-empty, free of duplicates and refer to catalog entries.
func (s *RecipeService) validateDraft(ctx context.Context, draft model.RecipeDraft) error {
	if err := validation.Struct(&draft); err != nil {
		return err
	}

	if id, dup := firstDuplicate(draft.TagIDs, func(id int64) int64 { return id }); dup {
		return apperror.ValidationFailed("tags", fmt.Sprintf("tag %d is listed more than once", id))
	}
	if id, dup := firstDuplicate(draft.Ingredients, func(e model.IngredientEntry) int64 { return e.IngredientID }); dup {
		return apperror.ValidationFailed("ingredients", fmt.Sprintf("ingredient %d is listed more than once", id))
	}

	tags, err := s.repos.Catalog.FindTags(ctx, draft.TagIDs)
	if err != nil {
		return err
	}
	if missing, ok := firstMissing(draft.TagIDs, tags, func(t model.Tag) int64 { return t.ID }); ok {
		return apperror.ValidationFailed("tags", fmt.Sprintf("tag %d does not exist", missing))
	}

	ids := make([]int64, len(draft.Ingredients))
	for i, e := range draft.Ingredients {
		ids[i] = e.IngredientID
	}
	ingredients, err := s.repos.Catalog.FindIngredients(ctx, ids)
	if err != nil {
		return err
	}
	if missing, ok := firstMissing(ids, ingredients, func(i model.Ingredient) int64 { return i.ID }); ok {
		return apperror.ValidationFailed("ingredients", fmt.Sprintf("ingredient %d does not exist", missing))
	}
	return nil
}

func (s *RecipeService) detail(ctx context.Context, viewerID string, r *model.Recipe) (*model.RecipeDetail, error) {
	tags, err := s.repos.Recipes.RecipeTags(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.repos.Recipes.RecipeIngredients(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	author, err := s.repos.Users.GetUserByID(ctx, r.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("service/recipe: loading author of %s: %w", r.ID, err)
	}
	authorView, err := s.views.user(ctx, viewerID, author)
	if err != nil {
		return nil, err
	}

	d := &model.RecipeDetail{
		ID:          r.ID,
		Tags:        tags,
		Author:      authorView,
		Ingredients: ingredients,
		Name:        r.Name,
		Image:       s.images.URL(r.Image),
		Text:        r.Text,
		CookingTime: r.CookingTime,
	}
	if viewerID != "" {
		if d.IsFavorited, err = s.repos.Relations.HasRelation(ctx, model.RelationFavorite, viewerID, r.ID); err != nil {
			return nil, err
		}
		if d.IsInShoppingCart, err = s.repos.Relations.HasRelation(ctx, model.RelationCart, viewerID, r.ID); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func firstDuplicate[T any](items []T, key func(T) int64) (int64, bool) {
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			return k, true
		}
		seen[k] = struct{}{}
	}
	return 0, false
}

func firstMissing[T any](want []int64, found []T, key func(T) int64) (int64, bool) {
	have := make(map[int64]struct{}, len(found))
	for _, f := range found {
		have[key(f)] = struct{}{}
	}
	for _, id := range want {
		if _, ok := have[id]; !ok {
			return id, true
		}
	}
	return 0, false
}
