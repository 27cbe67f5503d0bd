package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmiddlezong/problem-database/internal/api/middleware"
	"github.com/mmiddlezong/problem-database/internal/app/service"
	"github.com/mmiddlezong/problem-database/internal/common"
)

type ProblemHandler struct {
	problemService  *service.ProblemService
	selectorService *service.SelectorService
}

func NewProblemHandler(ps *service.ProblemService, ss *service.SelectorService) *ProblemHandler {
	return &ProblemHandler{problemService: ps, selectorService: ss}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)          // GET /api/v1/problems
	r.Get("/{problemID}", h.getProblem) // GET /api/v1/problems/{id}

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/next", h.nextProblem) // GET /api/v1/problems/next

		authed.With(middleware.AdminOnly).Post("/", h.createProblem) // POST /api/v1/problems
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProblemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	problem, err := h.problemService.CreateProblem(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	resp, err := h.problemService.ListProblems(r.Context(), queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	resp, err := h.problemService.GetProblem(r.Context(), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *ProblemHandler) nextProblem(w http.ResponseWriter, r *http.Request) {
	resp, err := h.selectorService.Next(r.Context(), callerEmail(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
