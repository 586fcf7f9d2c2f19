package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/storage"
)

// RelationService manages a user's favorites and shopping cart. Both are
// the same user→recipe relation, distinguished by model.RelationKind.
type RelationService struct {
	repos            Repositories
	views            views
	idempotentRemove bool
	logger           *slog.Logger
}

// NewRelationService creates a RelationService. With idempotentRemove,
// removing a recipe that is not in the collection succeeds silently.
func NewRelationService(repos Repositories, images storage.Store, idempotentRemove bool, logger *slog.Logger) *RelationService {
	return &RelationService{
		repos:            repos,
		views:            views{subs: repos.Subscriptions, images: images},
		idempotentRemove: idempotentRemove,
		logger:           logger,
	}
}

// Add puts the recipe into the user's collection and returns its short
// view. Adding it a second time is an apperror.ErrConflict.
func (s *RelationService) Add(ctx context.Context, kind model.RelationKind, userID, recipeID string) (*model.RecipeSummary, error) {
	if err := checkRelation(kind, userID); err != nil {
		return nil, err
	}
	recipe, err := s.repos.Recipes.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Relations.AddRelation(ctx, kind, userID, recipeID); err != nil {
		return nil, err
	}

	metrics.RelationChanges.WithLabelValues(string(kind), "add").Inc()
	s.logger.Debug("recipe added",
		slog.String("kind", string(kind)),
		slog.String("userID", userID),
		slog.String("recipeID", recipeID),
	)
	summary := s.views.summary(recipe)
	return &summary, nil
}

// Remove takes the recipe out of the user's collection. A missing recipe
// is always apperror.ErrNotFound; a recipe that is not in the collection
// is too, unless removal is configured to be idempotent.
func (s *RelationService) Remove(ctx context.Context, kind model.RelationKind, userID, recipeID string) error {
	if err := checkRelation(kind, userID); err != nil {
		return err
	}
	if _, err := s.repos.Recipes.GetRecipe(ctx, recipeID); err != nil {
		return err
	}

	err := s.repos.Relations.RemoveRelation(ctx, kind, userID, recipeID)
	if err != nil {
		if s.idempotentRemove && errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}

	metrics.RelationChanges.WithLabelValues(string(kind), "remove").Inc()
	return nil
}

func checkRelation(kind model.RelationKind, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("authentication required")
	}
	if !kind.Valid() {
		return apperror.ValidationFailed("kind", fmt.Sprintf("unknown collection %q", kind))
	}
	return nil
}
