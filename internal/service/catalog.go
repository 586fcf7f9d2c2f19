package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/validation"
)

// CatalogService serves the shared tag and ingredient reference data and
// imports it in bulk.
type CatalogService struct {
	repo   repository.CatalogRepository
	logger *slog.Logger
}

func NewCatalogService(repo repository.CatalogRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

func (s *CatalogService) Tags(ctx context.Context) ([]model.Tag, error) {
	return s.repo.ListTags(ctx)
}

func (s *CatalogService) Tag(ctx context.Context, id int64) (*model.Tag, error) {
	return s.repo.GetTag(ctx, id)
}

// Ingredients lists ingredients whose name starts with prefix, ignoring case.
func (s *CatalogService) Ingredients(ctx context.Context, prefix string) ([]model.Ingredient, error) {
	return s.repo.ListIngredients(ctx, strings.TrimSpace(prefix))
}

func (s *CatalogService) Ingredient(ctx context.Context, id int64) (*model.Ingredient, error) {
	return s.repo.GetIngredient(ctx, id)
}

type TagInput struct {
	Name string `json:"name" validate:"required,max=32"`
	Slug string `json:"slug" validate:"required,max=32,slug"`
}

type IngredientInput struct {
	Name            string `json:"name" validate:"required,max=128"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=64"`
}

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Created  int
	Existing int
	Failed   int
}

// ImportTags inserts each tag unless it already exists. Invalid rows and
// rows that fail to insert are logged and skipped.
func (s *CatalogService) ImportTags(ctx context.Context, tags []TagInput) ImportResult {
	var res ImportResult
	for i, in := range tags {
		if err := validation.Struct(&in); err != nil {
			s.logger.Warn("skipping tag", slog.Int("row", i), slog.String("slug", in.Slug), slog.Any("error", err))
			res.Failed++
			continue
		}
		created, err := s.repo.EnsureTag(ctx, &model.Tag{Name: in.Name, Slug: in.Slug})
		if err != nil {
			s.logger.Error("failed to import tag", slog.Int("row", i), slog.String("slug", in.Slug), slog.Any("error", err))
			res.Failed++
			continue
		}
		res.count(created)
	}
	return res
}

// ImportIngredients inserts each ingredient unless the (name, unit) pair
// already exists. Invalid rows and rows that fail to insert are logged and
// skipped.
func (s *CatalogService) ImportIngredients(ctx context.Context, ingredients []IngredientInput) ImportResult {
	var res ImportResult
	for i, in := range ingredients {
		if err := validation.Struct(&in); err != nil {
			s.logger.Warn("skipping ingredient", slog.Int("row", i), slog.String("name", in.Name), slog.Any("error", err))
			res.Failed++
			continue
		}
		created, err := s.repo.EnsureIngredient(ctx, &model.Ingredient{Name: in.Name, MeasurementUnit: in.MeasurementUnit})
		if err != nil {
			s.logger.Error("failed to import ingredient", slog.Int("row", i), slog.String("name", in.Name), slog.Any("error", err))
			res.Failed++
			continue
		}
		res.count(created)
	}
	return res
}

func (r *ImportResult) count(created bool) {
	if created {
		r.Created++
	} else {
		r.Existing++
	}
}
