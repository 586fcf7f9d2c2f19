package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository/sqlite"
)

type recipeFixture struct {
	db     *sqlite.DB
	images *memImages
	svc    *RecipeService
	author *model.User
	other  *model.User
	lunch  model.Tag
	dinner model.Tag
	flour  model.Ingredient
	sugar  model.Ingredient
	butter model.Ingredient
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	db := newTestStore(t)
	images := newMemImages()
	return &recipeFixture{
		db:     db,
		images: images,
		svc:    NewRecipeService(NewRepositories(db), images, 1<<20, discardLogger()),
		author: createUser(t, db, "chef"),
		other:  createUser(t, db, "guest"),
		lunch:  createTag(t, db, "Обед", "lunch"),
		dinner: createTag(t, db, "Ужин", "dinner"),
		flour:  createIngredient(t, db, "Мука", "г"),
		sugar:  createIngredient(t, db, "Сахар", "г"),
		butter: createIngredient(t, db, "Масло", "г"),
	}
}

func (f *recipeFixture) draft() model.RecipeDraft {
	return model.RecipeDraft{
		Name:        "Блины",
		Text:        "Смешать и жарить.",
		Image:       pngDataURI,
		CookingTime: 30,
		TagIDs:      []int64{f.lunch.ID},
		Ingredients: []model.IngredientEntry{
			{IngredientID: f.flour.ID, Amount: 200},
			{IngredientID: f.sugar.ID, Amount: 50},
		},
	}
}

// ===== CREATE TESTS =====

func TestRecipeCreate_ReadBackMatchesSubmission(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := f.svc.Get(ctx, "", created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0].ID != f.lunch.ID {
		t.Errorf("Tags = %+v, want [lunch]", got.Tags)
	}
	if len(got.Ingredients) != 2 {
		t.Fatalf("Ingredients = %+v, want 2 entries", got.Ingredients)
	}
	amounts := map[int64]int{}
	for _, ing := range got.Ingredients {
		amounts[ing.ID] = ing.Amount
	}
	if amounts[f.flour.ID] != 200 || amounts[f.sugar.ID] != 50 {
		t.Errorf("amounts = %v, want flour 200, sugar 50", amounts)
	}
	if got.Author.ID != f.author.ID {
		t.Errorf("Author.ID = %q, want %q", got.Author.ID, f.author.ID)
	}
	if !strings.HasPrefix(got.Image, "/media/recipes/images/") {
		t.Errorf("Image = %q, want a /media/recipes/images/ URL", got.Image)
	}
	if got.IsFavorited || got.IsInShoppingCart {
		t.Error("anonymous viewer should see no favorite or cart flags")
	}
}

func TestRecipeCreate_RequiresAuthor(t *testing.T) {
	f := newRecipeFixture(t)
	_, err := f.svc.Create(context.Background(), "", f.draft())
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Create() error = %v, want ErrUnauthorized", err)
	}
}

func TestRecipeCreate_ValidationFailuresWriteNothing(t *testing.T) {
	f := newRecipeFixture(t)

	tests := []struct {
		name  string
		edit  func(d *model.RecipeDraft)
		field string
	}{
		{"no ingredients", func(d *model.RecipeDraft) { d.Ingredients = nil }, "ingredients"},
		{"empty ingredients", func(d *model.RecipeDraft) { d.Ingredients = []model.IngredientEntry{} }, "ingredients"},
		{"repeated ingredient", func(d *model.RecipeDraft) {
			d.Ingredients = append(d.Ingredients, model.IngredientEntry{IngredientID: f.flour.ID, Amount: 10})
		}, "ingredients"},
		{"zero amount", func(d *model.RecipeDraft) { d.Ingredients[0].Amount = 0 }, "ingredients"},
		{"amount too large", func(d *model.RecipeDraft) { d.Ingredients[0].Amount = 32768 }, "ingredients"},
		{"unknown ingredient", func(d *model.RecipeDraft) { d.Ingredients[0].IngredientID = 9999 }, "ingredients"},
		{"no tags", func(d *model.RecipeDraft) { d.TagIDs = nil }, "tags"},
		{"repeated tag", func(d *model.RecipeDraft) { d.TagIDs = []int64{f.lunch.ID, f.lunch.ID} }, "tags"},
		{"unknown tag", func(d *model.RecipeDraft) { d.TagIDs = []int64{f.lunch.ID, 9999} }, "tags"},
		{"zero cooking time", func(d *model.RecipeDraft) { d.CookingTime = 0 }, "cooking_time"},
		{"cooking time too long", func(d *model.RecipeDraft) { d.CookingTime = 1441 }, "cooking_time"},
		{"name too long", func(d *model.RecipeDraft) { d.Name = strings.Repeat("я", 257) }, "name"},
		{"missing text", func(d *model.RecipeDraft) { d.Text = "" }, "text"},
		{"missing image", func(d *model.RecipeDraft) { d.Image = "" }, "image"},
		{"bad image", func(d *model.RecipeDraft) { d.Image = "data:image/png;base64,aGVsbG8=" }, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.draft()
			tt.edit(&d)

			_, err := f.svc.Create(context.Background(), f.author.ID, d)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}

	_, total, err := f.db.ListRecipes(context.Background(), model.RecipeFilter{})
	if err != nil {
		t.Fatalf("ListRecipes() error = %v", err)
	}
	if total != 0 {
		t.Errorf("recipes stored after failed creates = %d, want 0", total)
	}
	if refs := f.images.refs(); len(refs) != 0 {
		t.Errorf("images stored after failed creates = %v, want none", refs)
	}
}

func TestRecipeCreate_AmountBoundsAreInclusive(t *testing.T) {
	f := newRecipeFixture(t)
	d := f.draft()
	d.Ingredients[0].Amount = 1
	d.Ingredients[1].Amount = 32767

	if _, err := f.svc.Create(context.Background(), f.author.ID, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

// ===== UPDATE TESTS =====

func TestRecipeUpdate_ReplacesAssociations(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d := f.draft()
	d.Image = ""
	d.TagIDs = []int64{f.dinner.ID}
	d.Ingredients = []model.IngredientEntry{{IngredientID: f.butter.ID, Amount: 100}}
	updated, err := f.svc.Update(ctx, f.author.ID, created.ID, d)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(updated.Tags) != 1 || updated.Tags[0].ID != f.dinner.ID {
		t.Errorf("Tags = %+v, want only dinner", updated.Tags)
	}
	if len(updated.Ingredients) != 1 || updated.Ingredients[0].ID != f.butter.ID {
		t.Errorf("Ingredients = %+v, want only butter", updated.Ingredients)
	}
	if updated.Image != created.Image {
		t.Errorf("Image = %q, want unchanged %q", updated.Image, created.Image)
	}
}

func TestRecipeUpdate_NewImageReplacesOld(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	oldRefs := f.images.refs()

	updated, err := f.svc.Update(ctx, f.author.ID, created.ID, f.draft())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Image == created.Image {
		t.Error("Image URL should change when a new image is uploaded")
	}
	refs := f.images.refs()
	if len(refs) != 1 || refs[0] == oldRefs[0] {
		t.Errorf("stored images = %v, want only the new one", refs)
	}
}

func TestRecipeUpdate_FailureKeepsPreviousState(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d := f.draft()
	d.Ingredients = []model.IngredientEntry{}
	if _, err := f.svc.Update(ctx, f.author.ID, created.ID, d); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Update() error = %v, want ErrValidation", err)
	}

	got, err := f.svc.Get(ctx, "", created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Ingredients) != 2 || len(got.Tags) != 1 {
		t.Errorf("associations changed after failed update: %+v %+v", got.Tags, got.Ingredients)
	}
	if len(f.images.refs()) != 1 {
		t.Errorf("stored images = %v, want only the original", f.images.refs())
	}
}

func TestRecipeUpdate_OnlyAuthor(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.Update(ctx, f.other.ID, created.ID, f.draft()); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update() by non-author error = %v, want ErrForbidden", err)
	}
	if err := f.svc.Delete(ctx, f.other.ID, created.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() by non-author error = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Update(ctx, f.author.ID, "missing", f.draft()); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() of missing recipe error = %v, want ErrNotFound", err)
	}
}

// ===== DELETE / VIEW TESTS =====

func TestRecipeDelete_RemovesRecipeAndImage(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.svc.Delete(ctx, f.author.ID, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.svc.Get(ctx, "", created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if refs := f.images.refs(); len(refs) != 0 {
		t.Errorf("images after delete = %v, want none", refs)
	}
}

func TestRecipeGet_ViewerFlags(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.db.AddRelation(ctx, model.RelationFavorite, f.other.ID, created.ID); err != nil {
		t.Fatalf("AddRelation() error = %v", err)
	}
	if err := f.db.AddSubscription(ctx, f.other.ID, f.author.ID); err != nil {
		t.Fatalf("AddSubscription() error = %v", err)
	}

	got, err := f.svc.Get(ctx, f.other.ID, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.IsFavorited {
		t.Error("IsFavorited = false, want true")
	}
	if got.IsInShoppingCart {
		t.Error("IsInShoppingCart = true, want false")
	}
	if !got.Author.IsSubscribed {
		t.Error("Author.IsSubscribed = false, want true")
	}
}

func TestRecipeList_FavoriteFilterIgnoredForAnonymous(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.author.ID, f.draft())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.Create(ctx, f.author.ID, f.draft()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := f.db.AddRelation(ctx, model.RelationFavorite, f.other.ID, first.ID); err != nil {
		t.Fatalf("AddRelation() error = %v", err)
	}

	_, total, err := f.svc.List(ctx, f.other.ID, model.RecipeFilter{FavoritedBy: f.other.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 {
		t.Errorf("favorites of viewer = %d, want 1", total)
	}

	_, total, err = f.svc.List(ctx, "", model.RecipeFilter{FavoritedBy: f.other.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 {
		t.Errorf("anonymous list = %d, want 2 (filter dropped)", total)
	}
}
