package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/quizitive/commonology-sub000/internal/config"
	"github.com/quizitive/commonology-sub000/internal/logging"
	"github.com/quizitive/commonology-sub000/internal/tabulation"
	"github.com/quizitive/commonology-sub000/pkg/cache"
	"github.com/quizitive/commonology-sub000/pkg/database"
	"github.com/quizitive/commonology-sub000/pkg/tasks"
	"github.com/quizitive/commonology-sub000/pkg/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize cache
	var store cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Fatal("Failed to connect to cache", zap.Error(err))
		}
		defer redisCache.Close()
		store = redisCache
	} else {
		logger.Info("REDIS_ADDR not set, using in-process cache")
		store = cache.NewMemoryCache()
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(cfg.AllowedOrigins, logger)
	go wsHub.Run(ctx)

	// Snapshot tasks outlive the request that queued them.
	queue := tasks.NewPoolQueue(context.Background(), cfg.SnapshotWorkers, cfg.SnapshotWorkers*16, logger)

	repo := tabulation.NewRepository(db)
	service := tabulation.NewService(repo, store, queue, wsHub, logger, tabulation.Options{
		TallyTTL:           cfg.TallyTTL,
		LeaderboardTTL:     cfg.LeaderboardTTL,
		PageSize:           cfg.PageSize,
		ExcludeHostAnswers: cfg.ExcludeHostAnswers,
	})
	handler := tabulation.NewHandler(service, logger)

	// Setup router
	router := mux.NewRouter()
	handler.Register(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/ws/games/{gameID:[0-9]+}", wsHub.HandleWebSocket)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
	queue.StopAndWait()

	logger.Info("Server shutdown gracefully")
}
