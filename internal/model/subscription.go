package model

// AuthorView is a followed author together with a preview of their recipes.
type AuthorView struct {
	UserView
	Recipes      []RecipeSummary `json:"recipes"`
	RecipesCount int             `json:"recipes_count"`
}
