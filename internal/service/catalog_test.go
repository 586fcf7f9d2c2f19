package service

import (
	"context"
	"testing"
)

func TestCatalogImport_SkipsInvalidAndExisting(t *testing.T) {
	db := newTestStore(t)
	svc := NewCatalogService(db, discardLogger())
	ctx := context.Background()

	tags := svc.ImportTags(ctx, []TagInput{
		{Name: "Завтрак", Slug: "breakfast"},
		{Name: "Обед", Slug: "lunch"},
		{Name: "Плохой", Slug: "не слаг"},
		{Name: "Завтрак", Slug: "breakfast"},
	})
	if tags != (ImportResult{Created: 2, Existing: 1, Failed: 1}) {
		t.Errorf("ImportTags() = %+v", tags)
	}

	ingredients := svc.ImportIngredients(ctx, []IngredientInput{
		{Name: "Мука", MeasurementUnit: "г"},
		{Name: "Мука", MeasurementUnit: "кг"},
		{Name: "Мука", MeasurementUnit: "г"},
		{Name: "", MeasurementUnit: "г"},
	})
	if ingredients != (ImportResult{Created: 2, Existing: 1, Failed: 1}) {
		t.Errorf("ImportIngredients() = %+v", ingredients)
	}

	list, err := svc.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len(Tags()) = %d, want 2", len(list))
	}
}

func TestCatalogIngredients_PrefixIgnoresCase(t *testing.T) {
	db := newTestStore(t)
	svc := NewCatalogService(db, discardLogger())
	ctx := context.Background()
	createIngredient(t, db, "Мука", "г")
	createIngredient(t, db, "Масло", "г")
	createIngredient(t, db, "Сахар", "г")

	got, err := svc.Ingredients(ctx, " мА ")
	if err != nil {
		t.Fatalf("Ingredients() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "Масло" {
		t.Errorf("Ingredients(\"ма\") = %+v, want [Масло]", got)
	}

	all, err := svc.Ingredients(ctx, "")
	if err != nil {
		t.Fatalf("Ingredients() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(Ingredients(\"\")) = %d, want 3", len(all))
	}
}
