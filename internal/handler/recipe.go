package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/service"
)

// RecipeHandler serves /api/recipes/ and the short link redirect.
type RecipeHandler struct {
	recipes   *service.RecipeService
	relations *service.RelationService
	shopping  *service.ShoppingService
	links     *service.ShortLinkService
	pager     Paginator
	logger    *slog.Logger
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	relations *service.RelationService,
	shopping *service.ShoppingService,
	links *service.ShortLinkService,
	pager Paginator,
	logger *slog.Logger,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:   recipes,
		relations: relations,
		shopping:  shopping,
		links:     links,
		pager:     pager,
		logger:    logger,
	}
}

// HandleList serves GET /api/recipes/.
//
// Filters: author=<id>, tags=<slug> (repeatable, any of), is_favorited=1
// and is_in_shopping_cart=1. The last two only apply to signed-in users.
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewer := viewerID(r)
	q := r.URL.Query()
	req := h.pager.Parse(r)
	opts := req.Options()

	filter := model.RecipeFilter{
		AuthorID: q.Get("author"),
		TagSlugs: q["tags"],
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
	if viewer != "" {
		if flag(q.Get("is_favorited")) {
			filter.FavoritedBy = viewer
		}
		if flag(q.Get("is_in_shopping_cart")) {
			filter.InCartOf = viewer
		}
	}

	recipes, total, err := h.recipes.List(r.Context(), viewer, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, req, recipes, total))
}

// HandleGet serves GET /api/recipes/{id}/.
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.Get(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleCreate serves POST /api/recipes/.
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var draft model.RecipeDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, h.logger, err)
		return
	}
	recipe, err := h.recipes.Create(r.Context(), viewerID(r), draft)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// HandleUpdate serves PATCH /api/recipes/{id}/. Tags and ingredients are
// always replaced as a whole; the image may be omitted to keep it.
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var draft model.RecipeDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, h.logger, err)
		return
	}
	recipe, err := h.recipes.Update(r.Context(), viewerID(r), chi.URLParam(r, "id"), draft)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleDelete serves DELETE /api/recipes/{id}/.
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.recipes.Delete(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddRelation returns the POST handler for /favorite/ or /shopping_cart/.
func (h *RecipeHandler) HandleAddRelation(kind model.RelationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.relations.Add(r.Context(), kind, viewerID(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	}
}

// HandleRemoveRelation returns the DELETE handler for /favorite/ or /shopping_cart/.
func (h *RecipeHandler) HandleRemoveRelation(kind model.RelationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.relations.Remove(r.Context(), kind, viewerID(r), chi.URLParam(r, "id")); err != nil {
			writeError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleDownloadShoppingCart serves GET /api/recipes/download_shopping_cart/
// as a plain text attachment.
func (h *RecipeHandler) HandleDownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	// Render into a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.shopping.Write(r.Context(), viewerID(r), &buf); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ShoppingListFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

type shortLinkResponse struct {
	ShortLink string `json:"short-link"`
}

// HandleGetLink serves GET /api/recipes/{id}/get-link/, allocating the
// recipe's short link on first use.
func (h *RecipeHandler) HandleGetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.Allocate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shortLinkResponse{ShortLink: link})
}

// HandleShortLink serves GET /s/{code}/ by redirecting to the recipe page.
func (h *RecipeHandler) HandleShortLink(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.links.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, "/recipes/"+recipe.ID+"/", http.StatusFound)
}

func flag(v string) bool {
	return v == "1" || v == "true"
}
