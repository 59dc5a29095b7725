package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quizitive/commonology-sub000/internal/config"
	"github.com/quizitive/commonology-sub000/internal/logging"
	"github.com/quizitive/commonology-sub000/internal/tabulation"
	"github.com/quizitive/commonology-sub000/pkg/cache"
	"github.com/quizitive/commonology-sub000/pkg/database"
	"github.com/quizitive/commonology-sub000/pkg/tasks"
)

// app holds what every subcommand needs. It is filled lazily so that
// --help works without a database.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	service *tabulation.Service
	queue   *tasks.PoolQueue
	closers []func()
}

// newRootCmd builds the command tree. Callers must run a.close after
// Execute returns.
func newRootCmd(a *app) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "tabulator",
		Short:         "Code trivia answers and build leaderboards",
		Long:          "Roll raw answers up into coded answers, tally them and rank players.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(a),
		newTabulateCmd(a),
		newTallyCmd(a),
		newLeaderboardCmd(a),
	)
	return root
}

func (a *app) init(logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	// Console output reads better in a terminal than JSON.
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	a.cfg, a.logger, a.db = cfg, logger, db
	a.closers = append(a.closers, func() { logger.Sync() })
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { sqlDB.Close() })
	}
	return nil
}

// tabulationService wires the service on first use.
func (a *app) tabulationService(ctx context.Context) (*tabulation.Service, error) {
	if a.service != nil {
		return a.service, nil
	}

	var store cache.Cache = cache.NewMemoryCache()
	if a.cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, a.cfg.RedisAddr, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { redisCache.Close() })
		store = redisCache
	}

	a.queue = tasks.NewPoolQueue(context.Background(), a.cfg.SnapshotWorkers, a.cfg.SnapshotWorkers*16, a.logger)
	// Snapshots must land before the process exits.
	a.closers = append(a.closers, a.queue.StopAndWait)

	a.service = tabulation.NewService(tabulation.NewRepository(a.db), store, a.queue, nil, a.logger, tabulation.Options{
		TallyTTL:           a.cfg.TallyTTL,
		LeaderboardTTL:     a.cfg.LeaderboardTTL,
		PageSize:           a.cfg.PageSize,
		ExcludeHostAnswers: a.cfg.ExcludeHostAnswers,
	})
	return a.service, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
