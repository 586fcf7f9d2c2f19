package service

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/storage"
)

// =========================================================================
// SHARED FIXTURES
// =========================================================================

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens a fresh in-memory database.
func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// memImages is an in-memory storage.Store.
type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	next    int
}

func newMemImages() *memImages {
	return &memImages{objects: make(map[string][]byte)}
}

func (m *memImages) Save(_ context.Context, dir string, img storage.Image) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	ref := dir + "/img" + string(rune('a'+m.next-1)) + img.Ext
	m.objects[ref] = img.Data
	return ref, nil
}

func (m *memImages) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *memImages) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return "/media/" + ref
}

func (m *memImages) refs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.objects))
}

func createUser(t *testing.T, db *sqlite.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: username,
		LastName:  "Tester",
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", username, err)
	}
	return u
}

func createTag(t *testing.T, db *sqlite.DB, name, slug string) model.Tag {
	t.Helper()
	tag := model.Tag{Name: name, Slug: slug}
	if _, err := db.EnsureTag(context.Background(), &tag); err != nil {
		t.Fatalf("EnsureTag(%s) error = %v", slug, err)
	}
	return tag
}

func createIngredient(t *testing.T, db *sqlite.DB, name, unit string) model.Ingredient {
	t.Helper()
	ing := model.Ingredient{Name: name, MeasurementUnit: unit}
	if _, err := db.EnsureIngredient(context.Background(), &ing); err != nil {
		t.Fatalf("EnsureIngredient(%s) error = %v", name, err)
	}
	return ing
}
