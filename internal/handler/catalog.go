package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/foodgram/internal/service"
)

// CatalogHandler serves the read-only tag and ingredient endpoints. Neither
// list is paginated.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// HandleTags serves GET /api/tags/.
func (h *CatalogHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalog.Tags(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HandleTag serves GET /api/tags/{id}/.
func (h *CatalogHandler) HandleTag(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "tag")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	tag, err := h.catalog.Tag(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// HandleIngredients serves GET /api/ingredients/, optionally filtered by a
// case-insensitive name prefix in ?name=.
func (h *CatalogHandler) HandleIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.catalog.Ingredients(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredients)
}

// HandleIngredient serves GET /api/ingredients/{id}/.
func (h *CatalogHandler) HandleIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "ingredient")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	ingredient, err := h.catalog.Ingredient(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}
