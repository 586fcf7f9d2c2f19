package model

import "time"

// Recipe is the root row of the recipe aggregate. Its tag and ingredient
// associations live in separate relation rows owned by the recipe.
type Recipe struct {
	ID          string
	AuthorID    string
	Name        string
	Text        string
	Image       string // image store reference
	CookingTime int
	ShortCode   string // empty until a short link is allocated
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IngredientEntry is one (ingredient, amount) pair submitted with a recipe.
type IngredientEntry struct {
	IngredientID int64 `json:"id" validate:"gt=0"`
	Amount       int   `json:"amount" validate:"gte=1,lte=32767"`
}

// RecipeIngredient is an ingredient joined with the amount a recipe needs.
type RecipeIngredient struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeDraft is the payload of a create or update request. Image is a
// base64 data URI; it is required on create and optional on update, where
// an empty value keeps the current image.
type RecipeDraft struct {
	Name        string            `json:"name" validate:"required,max=256"`
	Text        string            `json:"text" validate:"required"`
	Image       string            `json:"image"`
	CookingTime int               `json:"cooking_time" validate:"gte=1,lte=1440"`
	TagIDs      []int64           `json:"tags" validate:"required,min=1"`
	Ingredients []IngredientEntry `json:"ingredients" validate:"required,min=1,dive"`
}

// RecipeDetail is the full recipe representation returned by the API.
type RecipeDetail struct {
	ID               string             `json:"id"`
	Tags             []Tag              `json:"tags"`
	Author           UserView           `json:"author"`
	Ingredients      []RecipeIngredient `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`
	IsInShoppingCart bool               `json:"is_in_shopping_cart"`
	Name             string             `json:"name"`
	Image            string             `json:"image"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
}

// RecipeSummary is the short recipe representation used by favorites,
// the shopping cart and subscription listings.
type RecipeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// RecipeFilter narrows a recipe listing. Zero values mean "no filter".
type RecipeFilter struct {
	AuthorID    string
	TagSlugs    []string
	FavoritedBy string
	InCartOf    string
	Limit       int
	Offset      int
}
