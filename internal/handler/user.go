package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/foodgram/internal/service"
)

// UserHandler serves /api/users/: profiles, avatars, passwords and
// subscriptions.
type UserHandler struct {
	users  *service.UserService
	auth   *service.AuthService
	pager  Paginator
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, auth *service.AuthService, pager Paginator, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, auth: auth, pager: pager, logger: logger}
}

// HandleList serves GET /api/users/.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	req := h.pager.Parse(r)
	users, total, err := h.users.List(r.Context(), viewerID(r), req.Options())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, req, users, total))
}

// HandleGet serves GET /api/users/{id}/.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleMe serves GET /api/users/me/.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type avatarBody struct {
	Avatar string `json:"avatar"`
}

// HandleSetAvatar serves PUT /api/users/me/avatar/ with a base64 data URI.
func (h *UserHandler) HandleSetAvatar(w http.ResponseWriter, r *http.Request) {
	var body avatarBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	url, err := h.users.SetAvatar(r.Context(), viewerID(r), body.Avatar)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, avatarBody{Avatar: url})
}

// HandleDeleteAvatar serves DELETE /api/users/me/avatar/.
func (h *UserHandler) HandleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteAvatar(r.Context(), viewerID(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

// HandleSetPassword serves POST /api/users/set_password/.
func (h *UserHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.auth.SetPassword(r.Context(), viewerID(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubscriptions serves GET /api/users/subscriptions/: the authors the
// caller follows, each with a preview of up to recipes_limit recipes.
func (h *UserHandler) HandleSubscriptions(w http.ResponseWriter, r *http.Request) {
	req := h.pager.Parse(r)
	authors, total, err := h.users.Subscriptions(r.Context(), viewerID(r), req.Options(), recipesLimit(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, req, authors, total))
}

// HandleSubscribe serves POST /api/users/{id}/subscribe/.
func (h *UserHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	author, err := h.users.Subscribe(r.Context(), viewerID(r), chi.URLParam(r, "id"), recipesLimit(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

// HandleUnsubscribe serves DELETE /api/users/{id}/subscribe/.
func (h *UserHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Unsubscribe(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recipesLimit reads ?recipes_limit=. Missing or malformed values yield 0,
// which the service treats as "no explicit limit".
func recipesLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("recipes_limit"))
	if err != nil {
		return 0
	}
	return n
}
