package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmiddlezong/problem-database/internal/api"
	"github.com/mmiddlezong/problem-database/internal/api/middleware"
	"github.com/mmiddlezong/problem-database/internal/app/service"
	"github.com/mmiddlezong/problem-database/internal/app/worker"
	"github.com/mmiddlezong/problem-database/internal/common/security"
	"github.com/mmiddlezong/problem-database/internal/domain/repository"
	"github.com/mmiddlezong/problem-database/internal/platform/config"
	"github.com/mmiddlezong/problem-database/internal/platform/content"
	"github.com/mmiddlezong/problem-database/internal/platform/database"
	"github.com/mmiddlezong/problem-database/internal/platform/logger"
	"github.com/mmiddlezong/problem-database/internal/platform/metrics"
	"github.com/mmiddlezong/problem-database/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	cfg, envFileLoaded := config.Load()

	log, err := logger.New(cfg.AppEnv, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if !envFileLoaded {
		log.Info("No .env file found, relying on environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	// 2. Initialize Database and apply migrations
	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		log.Fatal("database unavailable", "error", err)
	}
	defer db.Close()
	if err := database.MigrateUp(cfg.DBConnStr); err != nil {
		log.Fatal("migrations failed", "error", err)
	}
	log.Info("Database connected and migrated.")

	// 3. Initialize Redis
	rdb, err := queue.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis unavailable", "error", err)
	}
	defer rdb.Close()
	log.Info("Redis connected.")

	// 4. Initialize Repositories
	userRepo := repository.NewPgUserRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	attemptRepo := repository.NewPgAttemptRepository(db)
	historyRepo := repository.NewPgRatingHistoryRepository(db)
	boardRepo := repository.NewRedisLeaderboardRepository(rdb, cfg.LeaderboardKey)
	tx := repository.NewSQLTransactor(db)

	// 5. Initialize Services
	m := metrics.New()
	tokens := security.NewTokenManager(cfg.JWTKey, cfg.JWTExp)
	contentSource := content.NewCachedSource(
		content.NewClient(cfg.ContentAPIBaseURL, cfg.ContentAPISecret, cfg.ContentAPITimeout),
		rdb, cfg.ContentCacheTTL,
	)
	ratingQueue := queue.New(rdb, cfg.RatingQueueName)

	leaderboardService := service.NewLeaderboardService(userRepo, boardRepo, log)
	services := api.Services{
		Auth:        service.NewAuthService(userRepo, tokens, ratingQueue, log),
		Problems:    service.NewProblemService(problemRepo, tx, contentSource, m, log),
		Selector:    service.NewSelectorService(userRepo, problemRepo, contentSource, m, log),
		Answers:     service.NewAnswerService(userRepo, problemRepo, attemptRepo, historyRepo, tx, contentSource, ratingQueue, m, log),
		Users:       service.NewUserService(userRepo, attemptRepo, historyRepo),
		Leaderboard: leaderboardService,
	}

	// 6. Initialize Leaderboard Worker (as a goroutine)
	leaderboardWorker := worker.NewLeaderboardWorker(ratingQueue, leaderboardService, log)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		leaderboardWorker.Start(workerCtx)
	}()

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(api.RouterConfig{
		Tokens:         tokens,
		Log:            log,
		Metrics:        m,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		SubmitLimiter:  middleware.NewRateLimiter(cfg.SubmitRateLimit),
	}, services)

	server := api.NewServer(":"+cfg.APIPort, router)

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Server starting", "port", cfg.APIPort, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen", "port", cfg.APIPort, "error", err)
		}
	}()

	<-stop // Wait for interrupt signal

	log.Info("Shutting down server...")
	workerCancel()
	<-workerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
		return
	}

	log.Info("Server and worker stopped gracefully.")
}
