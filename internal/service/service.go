// Package service contains the business rules of the recipe API.
//
//	Handler (HTTP) → Service (rules, authorization) → Repository (SQL)
//
// Services take repository interfaces, never *sqlite.DB, so tests can hand
// them in-memory fakes or an in-memory database. Every failure a client
// should see is an *apperror.AppError; anything else is an internal error.
package service

import (
	"context"
	"log/slog"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/storage"
)

// Repositories bundles the persistence interfaces. *sqlite.DB satisfies
// all of them; a service only touches the fields it needs.
type Repositories struct {
	Users         repository.UserRepository
	Catalog       repository.CatalogRepository
	Recipes       repository.RecipeRepository
	Relations     repository.RelationRepository
	Shopping      repository.ShoppingListRepository
	Subscriptions repository.SubscriptionRepository
	ShortLinks    repository.ShortLinkRepository
}

// Store is the combined repository implemented by the sqlite package.
type Store interface {
	repository.UserRepository
	repository.CatalogRepository
	repository.RecipeRepository
	repository.RelationRepository
	repository.ShoppingListRepository
	repository.SubscriptionRepository
	repository.ShortLinkRepository
}

// NewRepositories points every field at store.
func NewRepositories(store Store) Repositories {
	return Repositories{
		Users:         store,
		Catalog:       store,
		Recipes:       store,
		Relations:     store,
		Shopping:      store,
		Subscriptions: store,
		ShortLinks:    store,
	}
}

// views renders users and recipes the way a particular viewer sees them.
type views struct {
	subs   repository.SubscriptionRepository
	images storage.Store
}

// user builds the public view of u. viewerID is "" for anonymous requests;
// nobody is shown as subscribed to themselves.
func (v views) user(ctx context.Context, viewerID string, u *model.User) (model.UserView, error) {
	view := model.UserView{
		Email:     u.Email,
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	if u.Avatar != "" {
		url := v.images.URL(u.Avatar)
		view.Avatar = &url
	}
	if viewerID != "" && viewerID != u.ID {
		subscribed, err := v.subs.IsSubscribed(ctx, viewerID, u.ID)
		if err != nil {
			return model.UserView{}, err
		}
		view.IsSubscribed = subscribed
	}
	return view, nil
}

func (v views) summary(r *model.Recipe) model.RecipeSummary {
	return model.RecipeSummary{
		ID:          r.ID,
		Name:        r.Name,
		Image:       v.images.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}

// discardImage removes an image that was stored for a write that then
// failed. The write's error matters more, so failures are only logged.
func discardImage(ctx context.Context, images storage.Store, logger *slog.Logger, ref string) {
	if ref == "" {
		return
	}
	if err := images.Delete(ctx, ref); err != nil {
		logger.Warn("failed to delete image", slog.String("ref", ref), slog.Any("error", err))
	}
}
