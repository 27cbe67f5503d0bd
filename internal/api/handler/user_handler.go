package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmiddlezong/problem-database/internal/api/middleware"
	"github.com/mmiddlezong/problem-database/internal/app/service"
	"github.com/mmiddlezong/problem-database/internal/common"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(us *service.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/me", h.me)                           // GET /api/v1/users/me
	r.Get("/me/rating-history", h.ratingHistory) // GET /api/v1/users/me/rating-history
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	resp, err := h.userService.Profile(r.Context(), callerEmail(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) ratingHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.userService.RatingHistory(r.Context(), callerEmail(r), queryInt(r, "limit"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
