package server

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/config"
	"github.com/sakif/foodgram/internal/handler"
	"github.com/sakif/foodgram/internal/middleware"
	"github.com/sakif/foodgram/internal/model"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/service"
	"github.com/sakif/foodgram/internal/storage"
)

// Deps is everything NewRouter needs. GitHub may be nil.
type Deps struct {
	Config    *config.Config
	DB        *sqliteRepo.DB
	Images    storage.Store
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	GitHub    *auth.GitHubProvider
	Logger    *slog.Logger
}

// NewRouter wires services and handlers over d.DB and returns the root
// handler.
//
//	GET    /healthz                                 liveness and DB ping
//	GET    /metrics                                 Prometheus
//	GET    /s/{code}/                               short link redirect
//	GET    /auth/github/login, /auth/github/callback
//	       /api/users/...    /api/auth/token/...
//	       /api/tags/...     /api/ingredients/...
//	       /api/recipes/...
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logger := d.Logger

	repos := service.NewRepositories(d.DB)
	relationsIdempotent := cfg.Relations.IdempotentRemove

	authSvc := service.NewAuthService(d.DB, d.Tokens, d.Passwords, logger)
	userSvc := service.NewUserService(repos, d.Images, service.UserOptions{
		MaxImageBytes:    cfg.Storage.MaxImageBytes,
		IdempotentRemove: relationsIdempotent,
	}, logger)
	catalogSvc := service.NewCatalogService(d.DB, logger)
	recipeSvc := service.NewRecipeService(repos, d.Images, cfg.Storage.MaxImageBytes, logger)
	relationSvc := service.NewRelationService(repos, d.Images, relationsIdempotent, logger)
	shoppingSvc := service.NewShoppingService(d.DB, logger)
	linkSvc := service.NewShortLinkService(d.DB, service.ShortLinkOptions{
		BaseURL:     cfg.ShortLink.BaseURL,
		TokenLength: cfg.ShortLink.TokenLength,
		MaxAttempts: cfg.ShortLink.MaxAttempts,
	}, logger)

	pager := handler.Paginator{
		DefaultSize: cfg.Pagination.DefaultPageSize,
		MaxSize:     cfg.Pagination.MaxPageSize,
	}
	authH := handler.NewAuthHandler(authSvc, d.GitHub, handler.AuthOptions{
		CookieTTL:    cfg.Auth.TokenTTL,
		CookieSecure: cfg.Auth.CookieSecure,
	}, logger)
	userH := handler.NewUserHandler(userSvc, authSvc, pager, logger)
	catalogH := handler.NewCatalogHandler(catalogSvc, logger)
	recipeH := handler.NewRecipeHandler(recipeSvc, relationSvc, shoppingSvc, linkSvc, pager, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(corsHandler(cfg.Server.CORSOrigins))
	if cfg.Server.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.Server.RateLimit, time.Minute))
	}

	r.Get("/healthz", healthHandler(d.DB, logger))
	r.Handle("/metrics", promhttp.Handler())
	mountMedia(r, d.Images, cfg.Storage.MediaURL)

	r.Get("/s/{code}/", recipeH.HandleShortLink)
	r.Get("/auth/github/login", authH.HandleGitHubLogin)
	r.Get("/auth/github/callback", authH.HandleGitHubCallback)

	requireAuth := auth.RequireAuth(d.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(d.Tokens))

		r.Post("/auth/token/login/", authH.HandleLogin)

		r.Get("/users/", userH.HandleList)
		r.Post("/users/", authH.HandleRegister)
		r.Get("/users/{id}/", userH.HandleGet)

		r.Get("/tags/", catalogH.HandleTags)
		r.Get("/tags/{id}/", catalogH.HandleTag)
		r.Get("/ingredients/", catalogH.HandleIngredients)
		r.Get("/ingredients/{id}/", catalogH.HandleIngredient)

		r.Get("/recipes/", recipeH.HandleList)
		r.Get("/recipes/{id}/", recipeH.HandleGet)
		r.Get("/recipes/{id}/get-link/", recipeH.HandleGetLink)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/auth/token/logout/", authH.HandleLogout)

			r.Get("/users/me/", userH.HandleMe)
			r.Put("/users/me/avatar/", userH.HandleSetAvatar)
			r.Delete("/users/me/avatar/", userH.HandleDeleteAvatar)
			r.Post("/users/set_password/", userH.HandleSetPassword)
			r.Get("/users/subscriptions/", userH.HandleSubscriptions)
			r.Post("/users/{id}/subscribe/", userH.HandleSubscribe)
			r.Delete("/users/{id}/subscribe/", userH.HandleUnsubscribe)

			r.Post("/recipes/", recipeH.HandleCreate)
			r.Patch("/recipes/{id}/", recipeH.HandleUpdate)
			r.Delete("/recipes/{id}/", recipeH.HandleDelete)
			r.Post("/recipes/{id}/favorite/", recipeH.HandleAddRelation(model.RelationFavorite))
			r.Delete("/recipes/{id}/favorite/", recipeH.HandleRemoveRelation(model.RelationFavorite))
			r.Post("/recipes/{id}/shopping_cart/", recipeH.HandleAddRelation(model.RelationCart))
			r.Delete("/recipes/{id}/shopping_cart/", recipeH.HandleRemoveRelation(model.RelationCart))
			r.Get("/recipes/download_shopping_cart/", recipeH.HandleDownloadShoppingCart)
		})
	})

	return r
}

// corsHandler allows credentials only for an explicit origin list; browsers
// reject a wildcard origin combined with credentials.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: len(origins) > 0 && !slices.Contains(origins, "*"),
		MaxAge:           300,
	})
}

// mountMedia serves a local image store under its public URL prefix. Other
// backends publish their own URLs and need no route.
func mountMedia(r chi.Router, images storage.Store, mediaURL string) {
	local, ok := images.(*storage.LocalStore)
	if !ok || !strings.HasPrefix(mediaURL, "/") {
		return
	}
	prefix := "/" + strings.Trim(mediaURL, "/") + "/"
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(local.Root())))
	r.Handle(prefix+"*", fs)
}
