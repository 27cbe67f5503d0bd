package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmiddlezong/problem-database/internal/app/service"
	"github.com/mmiddlezong/problem-database/internal/common"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(ls *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.top) // GET /api/v1/leaderboard
}

func (h *LeaderboardHandler) top(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboardService.Top(r.Context(), queryInt(r, "limit"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
