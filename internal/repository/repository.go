// Package repository declares the persistence interfaces used by the
// service layer. The sqlite subpackage implements all of them on one *DB.
package repository

import (
	"context"

	"github.com/sakif/foodgram/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, int, error)
	UpdateAvatar(ctx context.Context, id, avatar string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	LinkGitHub(ctx context.Context, id string, githubID int64) error
}

type CatalogRepository interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	GetTag(ctx context.Context, id int64) (*model.Tag, error)
	FindTags(ctx context.Context, ids []int64) ([]model.Tag, error)
	ListIngredients(ctx context.Context, namePrefix string) ([]model.Ingredient, error)
	GetIngredient(ctx context.Context, id int64) (*model.Ingredient, error)
	FindIngredients(ctx context.Context, ids []int64) ([]model.Ingredient, error)
	// EnsureTag and EnsureIngredient insert the row unless an equal one
	// exists, and report whether a row was created.
	EnsureTag(ctx context.Context, tag *model.Tag) (bool, error)
	EnsureIngredient(ctx context.Context, ingredient *model.Ingredient) (bool, error)
}

// RecipeRepository persists the recipe aggregate. CreateRecipe and
// UpdateRecipe write the recipe row and its full association set in a
// single transaction.
type RecipeRepository interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, ingredients []model.IngredientEntry) error
	UpdateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, ingredients []model.IngredientEntry) error
	GetRecipe(ctx context.Context, id string) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	ListRecipes(ctx context.Context, filter model.RecipeFilter) ([]model.Recipe, int, error)
	RecipeTags(ctx context.Context, recipeID string) ([]model.Tag, error)
	RecipeIngredients(ctx context.Context, recipeID string) ([]model.RecipeIngredient, error)
}

// RelationRepository stores favorite and shopping cart rows, one table
// keyed by (kind, user, recipe).
type RelationRepository interface {
	AddRelation(ctx context.Context, kind model.RelationKind, userID, recipeID string) error
	RemoveRelation(ctx context.Context, kind model.RelationKind, userID, recipeID string) error
	HasRelation(ctx context.Context, kind model.RelationKind, userID, recipeID string) (bool, error)
}

type ShoppingListRepository interface {
	// ShoppingList sums ingredient amounts over the user's cart, grouped by
	// (name, unit) and ordered by name.
	ShoppingList(ctx context.Context, userID string) ([]model.ShoppingItem, error)
}

type SubscriptionRepository interface {
	AddSubscription(ctx context.Context, userID, authorID string) error
	RemoveSubscription(ctx context.Context, userID, authorID string) error
	IsSubscribed(ctx context.Context, userID, authorID string) (bool, error)
	ListSubscribedAuthors(ctx context.Context, userID string, opts ListOptions) ([]model.User, int, error)
}

type ShortLinkRepository interface {
	// ShortCode returns the recipe's code, or "" when none is allocated.
	ShortCode(ctx context.Context, recipeID string) (string, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
	// AssignShortCode stores code on a recipe that has none and returns the
	// code the recipe ends up with. If another allocation won the race the
	// existing code is returned. A code already used by another recipe
	// yields an apperror.ErrConflict.
	AssignShortCode(ctx context.Context, recipeID, code string) (string, error)
	GetRecipeByShortCode(ctx context.Context, code string) (*model.Recipe, error)
}
