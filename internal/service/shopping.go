package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/metrics"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

const (
	ShoppingListHeader   = "Список покупок:"
	ShoppingListFilename = "shopping_list.txt"
)

// ShoppingService turns a user's cart into a consolidated shopping list.
type ShoppingService struct {
	repo   repository.ShoppingListRepository
	logger *slog.Logger
}

func NewShoppingService(repo repository.ShoppingListRepository, logger *slog.Logger) *ShoppingService {
	return &ShoppingService{repo: repo, logger: logger}
}

// Build sums the ingredient amounts of every recipe in the user's cart,
// one item per (name, unit), ordered by name. An empty cart gives an empty
// list.
func (s *ShoppingService) Build(ctx context.Context, userID string) (model.ShoppingList, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	items, err := s.repo.ShoppingList(ctx, userID)
	if err != nil {
		return nil, err
	}
	return model.ShoppingList(items), nil
}

// Write builds the user's list and renders it to w.
func (s *ShoppingService) Write(ctx context.Context, userID string, w io.Writer) error {
	list, err := s.Build(ctx, userID)
	if err != nil {
		return err
	}
	if err := RenderShoppingList(w, list.All()); err != nil {
		return fmt.Errorf("service/shopping: rendering list: %w", err)
	}
	metrics.ShoppingListsRendered.Inc()
	s.logger.Debug("shopping list rendered", slog.String("userID", userID), slog.Int("items", len(list)))
	return nil
}

// RenderShoppingList writes the header line followed by one
// "{name} - {amount}, {unit}" line per item.
func RenderShoppingList(w io.Writer, items iter.Seq[model.ShoppingItem]) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, ShoppingListHeader); err != nil {
		return err
	}
	for item := range items {
		if _, err := fmt.Fprintf(bw, "%s - %d, %s\n", item.Name, item.Amount, item.MeasurementUnit); err != nil {
			return err
		}
	}
	return bw.Flush()
}
