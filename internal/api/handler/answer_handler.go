package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmiddlezong/problem-database/internal/api/middleware"
	"github.com/mmiddlezong/problem-database/internal/app/service"
	"github.com/mmiddlezong/problem-database/internal/common"
)

const (
	CodeAnswerSubmitted  = "answer-submitted"
	CodeAlreadyAttempted = "problem-already-attempted"
)

type AnswerHandler struct {
	answerService *service.AnswerService
	limiter       *middleware.RateLimiter
}

func NewAnswerHandler(as *service.AnswerService, limiter *middleware.RateLimiter) *AnswerHandler {
	return &AnswerHandler{answerService: as, limiter: limiter}
}

func (h *AnswerHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	if h.limiter != nil {
		r.Use(h.limiter.Middleware)
	}
	r.Post("/", h.submitAnswer) // POST /api/v1/answers
}

type alreadyAttemptedResponse struct {
	Code string `json:"code"`
}

type answerSubmittedResponse struct {
	Code            string          `json:"code"`
	IsCorrect       bool            `json:"is_correct"`
	RatingChange    int             `json:"rating_change"`
	NewRating       int             `json:"new_rating"`
	CorrectAnswer   *string         `json:"correct_answer"`
	SolutionContent json.RawMessage `json:"solution_content"`
}

func (h *AnswerHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitAnswerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	result, err := h.answerService.Submit(r.Context(), callerEmail(r), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	if result.AlreadyAttempted {
		common.RespondWithJSON(w, http.StatusOK, alreadyAttemptedResponse{Code: CodeAlreadyAttempted})
		return
	}
	common.RespondWithJSON(w, http.StatusOK, answerSubmittedResponse{
		Code:            CodeAnswerSubmitted,
		IsCorrect:       result.IsCorrect,
		RatingChange:    result.RatingChange,
		NewRating:       result.NewRating,
		CorrectAnswer:   result.CorrectAnswer,
		SolutionContent: result.SolutionContent,
	})
}
