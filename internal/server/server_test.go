package server_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/config"
	"github.com/sakif/foodgram/internal/model"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/server"
	"github.com/sakif/foodgram/internal/storage"
)

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(
	[]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"))

type testApp struct {
	t       *testing.T
	handler http.Handler
	db      *sqliteRepo.DB
	media   string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mediaDir := t.TempDir()
	images, err := storage.NewLocalStore(mediaDir, "/media/")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret-at-least-16"
	cfg.Server.RateLimit = 0
	cfg.ShortLink.BaseURL = "http://foodgram.test/s/"

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, time.Hour)
	require.NoError(t, err)

	h := server.NewRouter(server.Deps{
		Config:    cfg,
		DB:        db,
		Images:    images,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(bcrypt.MinCost),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &testApp{t: t, handler: h, db: db, media: mediaDir}
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// signUp registers username and returns its id and token.
func (a *testApp) signUp(username string) (string, string) {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "Test",
		"last_name":  "User",
		"password":   "correct-horse",
	})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	user := decode[model.User](a.t, rr)

	rr = a.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email":    username + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(a.t, http.StatusOK, rr.Code, rr.Body.String())
	login := decode[map[string]string](a.t, rr)
	require.NotEmpty(a.t, login["auth_token"])
	return user.ID, login["auth_token"]
}

func (a *testApp) seedCatalog() (model.Tag, model.Ingredient, model.Ingredient) {
	a.t.Helper()
	ctx := context.Background()
	tag := model.Tag{Name: "Обед", Slug: "lunch"}
	flour := model.Ingredient{Name: "Мука", MeasurementUnit: "г"}
	sugar := model.Ingredient{Name: "Сахар", MeasurementUnit: "г"}
	_, err := a.db.EnsureTag(ctx, &tag)
	require.NoError(a.t, err)
	_, err = a.db.EnsureIngredient(ctx, &flour)
	require.NoError(a.t, err)
	_, err = a.db.EnsureIngredient(ctx, &sugar)
	require.NoError(a.t, err)
	return tag, flour, sugar
}

func recipeBody(tagID, ingID int64, amount int) map[string]any {
	return map[string]any{
		"name":         "Блины",
		"text":         "Смешать и жарить.",
		"image":        pngDataURI,
		"cooking_time": 30,
		"tags":         []int64{tagID},
		"ingredients":  []map[string]any{{"id": ingID, "amount": amount}},
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/api/tags/", "", nil)

	rr := app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestCatalogEndpoints(t *testing.T) {
	app := newTestApp(t)
	tag, flour, _ := app.seedCatalog()

	rr := app.do(http.MethodGet, "/api/tags/", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []model.Tag{tag}, decode[[]model.Tag](t, rr))

	rr = app.do(http.MethodGet, "/api/ingredients/?name=%D0%BC%D1%83", "", nil) // "му"
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []model.Ingredient{flour}, decode[[]model.Ingredient](t, rr))

	rr = app.do(http.MethodGet, "/api/tags/999/", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = app.do(http.MethodGet, "/api/ingredients/abc/", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuth_RequiredEndpointsRejectAnonymous(t *testing.T) {
	app := newTestApp(t)

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/me/"},
		{http.MethodPost, "/api/recipes/"},
		{http.MethodGet, "/api/recipes/download_shopping_cart/"},
		{http.MethodGet, "/api/users/subscriptions/"},
		{http.MethodPost, "/api/auth/token/logout/"},
	} {
		rr := app.do(rt.method, rt.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", rt.method, rt.path)
	}

	rr := app.do(http.MethodGet, "/api/users/me/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_LoginFailsWithWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.signUp("chef")

	rr := app.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email":    "chef@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuth_RegisterRejectsDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.signUp("chef")

	rr := app.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email":      "chef@example.com",
		"username":   "other",
		"first_name": "Other",
		"last_name":  "User",
		"password":   "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAuth_LoginSetsCookieAndLogoutClearsIt(t *testing.T) {
	app := newTestApp(t)
	_, token := app.signUp("chef")

	rr := app.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email":    "chef@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// The cookie alone authenticates.
	req := httptest.NewRequest(http.MethodGet, "/api/users/me/", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	app.handler.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)

	rr = app.do(http.MethodPost, "/api/auth/token/logout/", token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestRecipeLifecycle(t *testing.T) {
	app := newTestApp(t)
	tag, flour, sugar := app.seedCatalog()
	_, chefToken := app.signUp("chef")
	_, guestToken := app.signUp("guest")

	rr := app.do(http.MethodPost, "/api/recipes/", chefToken, recipeBody(tag.ID, flour.ID, 200))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.RecipeDetail](t, rr)
	assert.Equal(t, "Блины", created.Name)
	assert.Equal(t, "chef", created.Author.Username)
	assert.True(t, strings.HasPrefix(created.Image, "/media/recipes/images/"), created.Image)
	require.Len(t, created.Ingredients, 1)
	assert.Equal(t, 200, created.Ingredients[0].Amount)

	// The stored image is served from the media prefix.
	img := app.do(http.MethodGet, created.Image, "", nil)
	assert.Equal(t, http.StatusOK, img.Code)

	recipePath := "/api/recipes/" + created.ID + "/"

	t.Run("anonymous read", func(t *testing.T) {
		rr := app.do(http.MethodGet, recipePath, "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[model.RecipeDetail](t, rr)
		assert.False(t, got.IsFavorited)
	})

	t.Run("only the author may edit", func(t *testing.T) {
		body := recipeBody(tag.ID, sugar.ID, 5)
		delete(body, "image")

		rr := app.do(http.MethodPatch, recipePath, guestToken, body)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = app.do(http.MethodPatch, recipePath, chefToken, body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		got := decode[model.RecipeDetail](t, rr)
		require.Len(t, got.Ingredients, 1)
		assert.Equal(t, "Сахар", got.Ingredients[0].Name)
		assert.Equal(t, created.Image, got.Image)
	})

	t.Run("validation error names the field", func(t *testing.T) {
		body := recipeBody(tag.ID, flour.ID, 0)
		rr := app.do(http.MethodPost, "/api/recipes/", chefToken, body)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "ingredients", decode[map[string]string](t, rr)["field"])
	})

	t.Run("favorite and cart", func(t *testing.T) {
		rr := app.do(http.MethodPost, recipePath+"favorite/", guestToken, nil)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		summary := decode[model.RecipeSummary](t, rr)
		assert.Equal(t, created.ID, summary.ID)

		rr = app.do(http.MethodPost, recipePath+"favorite/", guestToken, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)

		rr = app.do(http.MethodGet, "/api/recipes/?is_favorited=1", guestToken, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		page := decode[model.Page[model.RecipeDetail]](t, rr)
		require.Equal(t, 1, page.Count)
		assert.True(t, page.Results[0].IsFavorited)

		rr = app.do(http.MethodPost, recipePath+"shopping_cart/", guestToken, nil)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = app.do(http.MethodGet, "/api/recipes/download_shopping_cart/", guestToken, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "shopping_list.txt")
		assert.Equal(t, "Список покупок:\nСахар - 5, г\n", rr.Body.String())

		rr = app.do(http.MethodDelete, recipePath+"shopping_cart/", guestToken, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		rr = app.do(http.MethodDelete, recipePath+"shopping_cart/", guestToken, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("short link is stable and redirects", func(t *testing.T) {
		rr := app.do(http.MethodGet, recipePath+"get-link/", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		link := decode[map[string]string](t, rr)["short-link"]
		require.True(t, strings.HasPrefix(link, "http://foodgram.test/s/"), link)
		require.True(t, strings.HasSuffix(link, "/"), link)

		again := decode[map[string]string](t, app.do(http.MethodGet, recipePath+"get-link/", "", nil))
		assert.Equal(t, link, again["short-link"])

		rr = app.do(http.MethodGet, strings.TrimPrefix(link, "http://foodgram.test"), "", nil)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/recipes/"+created.ID+"/", rr.Header().Get("Location"))

		rr = app.do(http.MethodGet, "/s/doesnotexist/", "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rr := app.do(http.MethodDelete, recipePath, guestToken, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = app.do(http.MethodDelete, recipePath, chefToken, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = app.do(http.MethodGet, recipePath, "", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRecipeList_Paginates(t *testing.T) {
	app := newTestApp(t)
	tag, flour, _ := app.seedCatalog()
	_, token := app.signUp("chef")

	for range 3 {
		rr := app.do(http.MethodPost, "/api/recipes/", token, recipeBody(tag.ID, flour.ID, 1))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := app.do(http.MethodGet, "/api/recipes/?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[model.Page[model.RecipeDetail]](t, rr)
	assert.Equal(t, 3, page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	rr = app.do(http.MethodGet, "/api/recipes/?limit=2&page=2", "", nil)
	page = decode[model.Page[model.RecipeDetail]](t, rr)
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)

	rr = app.do(http.MethodGet, "/api/recipes/?tags=dinner", "", nil)
	page = decode[model.Page[model.RecipeDetail]](t, rr)
	assert.Equal(t, 0, page.Count)
	assert.NotNil(t, page.Results)
}

func TestUsers_SubscriptionsAndAvatar(t *testing.T) {
	app := newTestApp(t)
	tag, flour, _ := app.seedCatalog()
	chefID, chefToken := app.signUp("chef")
	_, guestToken := app.signUp("guest")

	for range 2 {
		rr := app.do(http.MethodPost, "/api/recipes/", chefToken, recipeBody(tag.ID, flour.ID, 1))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	subscribePath := "/api/users/" + chefID + "/subscribe/"

	rr := app.do(http.MethodPost, subscribePath+"?recipes_limit=1", guestToken, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	author := decode[model.AuthorView](t, rr)
	assert.True(t, author.IsSubscribed)
	assert.Len(t, author.Recipes, 1)
	assert.Equal(t, 2, author.RecipesCount)

	rr = app.do(http.MethodPost, subscribePath, guestToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = app.do(http.MethodPost, subscribePath, chefToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(http.MethodGet, "/api/users/subscriptions/", guestToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	subs := decode[model.Page[model.AuthorView]](t, rr)
	require.Equal(t, 1, subs.Count)
	assert.Equal(t, "chef", subs.Results[0].Username)

	rr = app.do(http.MethodGet, "/api/users/"+chefID+"/", guestToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[model.UserView](t, rr).IsSubscribed)

	rr = app.do(http.MethodDelete, subscribePath, guestToken, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = app.do(http.MethodPut, "/api/users/me/avatar/", guestToken, map[string]string{"avatar": pngDataURI})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, strings.HasPrefix(decode[map[string]string](t, rr)["avatar"], "/media/users/"))

	rr = app.do(http.MethodGet, "/api/users/me/", guestToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[model.UserView](t, rr)
	require.NotNil(t, me.Avatar)

	rr = app.do(http.MethodDelete, "/api/users/me/avatar/", guestToken, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestUsers_SetPassword(t *testing.T) {
	app := newTestApp(t)
	_, token := app.signUp("chef")

	rr := app.do(http.MethodPost, "/api/users/set_password/", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "brand-new-pass",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(http.MethodPost, "/api/users/set_password/", token, map[string]string{
		"current_password": "correct-horse",
		"new_password":     "brand-new-pass",
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = app.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email":    "chef@example.com",
		"password": "brand-new-pass",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGitHubRoutesWithoutProvider(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(http.MethodGet, "/auth/github/login", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
