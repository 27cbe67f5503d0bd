package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/cors"

	"github.com/mmiddlezong/problem-database/internal/api/handler"
	"github.com/mmiddlezong/problem-database/internal/api/middleware"
	"github.com/mmiddlezong/problem-database/internal/app/service"
	"github.com/mmiddlezong/problem-database/internal/common/security"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
	"github.com/mmiddlezong/problem-database/internal/platform/metrics"
)

const (
	// RequestTimeout bounds every request handled by the router.
	RequestTimeout = 30 * time.Second
	// MaxRequestBodyBytes caps request bodies before they are decoded.
	MaxRequestBodyBytes = 64 << 10
)

type Services struct {
	Auth        *service.AuthService
	Problems    *service.ProblemService
	Selector    *service.SelectorService
	Answers     *service.AnswerService
	Users       *service.UserService
	Leaderboard *service.LeaderboardService
}

type RouterConfig struct {
	Tokens         *security.TokenManager
	Log            *logger.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	SubmitLimiter  *middleware.RateLimiter
}

func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(middleware.Instrument(cfg.Metrics))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(RequestTimeout))
	r.Use(chiMiddleware.RequestSize(MaxRequestBodyBytes))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	// Searches for a token in "Authorization: Bearer T" and puts the verified claims in context.
	r.Use(jwtauth.Verifier(cfg.Tokens.Auth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", handler.NewAuthHandler(svc.Auth).RegisterRoutes)
		v1.Route("/problems", handler.NewProblemHandler(svc.Problems, svc.Selector).RegisterRoutes)
		v1.Route("/answers", handler.NewAnswerHandler(svc.Answers, cfg.SubmitLimiter).RegisterRoutes)
		v1.Route("/users", handler.NewUserHandler(svc.Users).RegisterRoutes)
		v1.Route("/leaderboard", handler.NewLeaderboardHandler(svc.Leaderboard).RegisterRoutes)
	})

	return r
}

// NewServer serves handler with a write deadline that outlasts
// RequestTimeout, so a timed-out request still receives its 504.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
