package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/storage"
)

const (
	avatarDir = "users"
	// maxRecipesPreview bounds the recipes embedded in an author view when
	// the client does not pass recipes_limit.
	maxRecipesPreview = 100
)

// UserService serves profiles, avatars and subscriptions.
type UserService struct {
	repos            Repositories
	images           storage.Store
	views            views
	maxImageBytes    int
	idempotentRemove bool
	logger           *slog.Logger
}

type UserOptions struct {
	MaxImageBytes int
	// IdempotentRemove makes unsubscribing from an author one is not
	// subscribed to a no-op.
	IdempotentRemove bool
}

func NewUserService(repos Repositories, images storage.Store, opts UserOptions, logger *slog.Logger) *UserService {
	return &UserService{
		repos:            repos,
		images:           images,
		views:            views{subs: repos.Subscriptions, images: images},
		maxImageBytes:    opts.MaxImageBytes,
		idempotentRemove: opts.IdempotentRemove,
		logger:           logger,
	}
}

// View renders u as seen by viewerID.
func (s *UserService) View(ctx context.Context, viewerID string, u *model.User) (*model.UserView, error) {
	v, err := s.views.user(ctx, viewerID, u)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Get returns the profile of userID as seen by viewerID ("" for anonymous).
func (s *UserService) Get(ctx context.Context, viewerID, userID string) (*model.UserView, error) {
	user, err := s.repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.View(ctx, viewerID, user)
}

// Me returns the caller's own profile.
func (s *UserService) Me(ctx context.Context, userID string) (*model.UserView, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	return s.Get(ctx, userID, userID)
}

func (s *UserService) List(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.UserView, int, error) {
	users, total, err := s.repos.Users.ListUsers(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.UserView, 0, len(users))
	for i := range users {
		v, err := s.views.user(ctx, viewerID, &users[i])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, nil
}

// SetAvatar decodes and stores a new avatar and returns its URL. The
// previous avatar, if any, is deleted.
func (s *UserService) SetAvatar(ctx context.Context, userID, dataURI string) (string, error) {
	if dataURI == "" {
		return "", apperror.ValidationFailed("avatar", "avatar is required")
	}
	img, err := storage.DecodeDataURI("avatar", dataURI, s.maxImageBytes)
	if err != nil {
		return "", err
	}
	user, err := s.repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	ref, err := s.images.Save(ctx, avatarDir, img)
	if err != nil {
		return "", fmt.Errorf("service/user: storing avatar: %w", err)
	}
	if err := s.repos.Users.UpdateAvatar(ctx, userID, ref); err != nil {
		discardImage(ctx, s.images, s.logger, ref)
		return "", err
	}
	discardImage(ctx, s.images, s.logger, user.Avatar)
	return s.images.URL(ref), nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, userID string) error {
	user, err := s.repos.Users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == "" {
		return nil
	}
	if err := s.repos.Users.UpdateAvatar(ctx, userID, ""); err != nil {
		return err
	}
	discardImage(ctx, s.images, s.logger, user.Avatar)
	return nil
}

// Subscribe makes userID follow authorID and returns the author view with
// up to recipesLimit of their recipes (0 means the default preview size).
func (s *UserService) Subscribe(ctx context.Context, userID, authorID string, recipesLimit int) (*model.AuthorView, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	if userID == authorID {
		return nil, apperror.ValidationFailed("author", "you cannot subscribe to yourself")
	}
	author, err := s.repos.Users.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Subscriptions.AddSubscription(ctx, userID, authorID); err != nil {
		return nil, err
	}
	s.logger.Debug("subscribed", slog.String("userID", userID), slog.String("authorID", authorID))
	return s.authorView(ctx, userID, author, recipesLimit)
}

func (s *UserService) Unsubscribe(ctx context.Context, userID, authorID string) error {
	if userID == "" {
		return apperror.Unauthorized("authentication required")
	}
	if _, err := s.repos.Users.GetUserByID(ctx, authorID); err != nil {
		return err
	}
	err := s.repos.Subscriptions.RemoveSubscription(ctx, userID, authorID)
	if err != nil && s.idempotentRemove && errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	return err
}

// Subscriptions lists the authors userID follows, newest subscription first.
func (s *UserService) Subscriptions(ctx context.Context, userID string, opts repository.ListOptions, recipesLimit int) ([]model.AuthorView, int, error) {
	if userID == "" {
		return nil, 0, apperror.Unauthorized("authentication required")
	}
	authors, total, err := s.repos.Subscriptions.ListSubscribedAuthors(ctx, userID, opts)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.AuthorView, 0, len(authors))
	for i := range authors {
		v, err := s.authorView(ctx, userID, &authors[i], recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	return out, total, nil
}

func (s *UserService) authorView(ctx context.Context, viewerID string, author *model.User, recipesLimit int) (*model.AuthorView, error) {
	if recipesLimit <= 0 || recipesLimit > maxRecipesPreview {
		recipesLimit = maxRecipesPreview
	}
	uv, err := s.views.user(ctx, viewerID, author)
	if err != nil {
		return nil, err
	}
	recipes, total, err := s.repos.Recipes.ListRecipes(ctx, model.RecipeFilter{
		AuthorID: author.ID,
		Limit:    recipesLimit,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]model.RecipeSummary, 0, len(recipes))
	for i := range recipes {
		summaries = append(summaries, s.views.summary(&recipes[i]))
	}
	return &model.AuthorView{
		UserView:     uv,
		Recipes:      summaries,
		RecipesCount: total,
	}, nil
}
