// internal/tabulation/service.go
package tabulation

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/quizitive/commonology-sub000/internal/metrics"
	"github.com/quizitive/commonology-sub000/internal/models"
	"github.com/quizitive/commonology-sub000/internal/rollup"
	"github.com/quizitive/commonology-sub000/pkg/cache"
	"github.com/quizitive/commonology-sub000/pkg/tasks"
)

// Notifier is told when a game's leaderboard has been rebuilt.
type Notifier interface {
	LeaderboardUpdated(gameID uint, fingerprint string)
}

type Options struct {
	TallyTTL       time.Duration
	LeaderboardTTL time.Duration
	PageSize       int
	// ExcludeHostAnswers keeps host responses out of the tally.
	ExcludeHostAnswers bool
}

type TabulationResult struct {
	Reconcile   ReconcileStats           `json:"reconcile"`
	Tally       *models.AnswerTally      `json:"tally"`
	Leaderboard *models.LeaderboardTable `json:"leaderboard"`
}

type Service struct {
	repo     *Repository
	cache    cache.Cache
	queue    tasks.Queue
	notifier Notifier
	logger   *zap.Logger
	opts     Options

	rebuilds singleflight.Group
	// generations counts forced tally refreshes per game. A build only
	// caches its tally if no forced refresh started after it.
	generations *xsync.Map[uint, uint64]
}

// rebuildTimeout bounds a shared rebuild once it no longer follows the
// context of the request that started it.
const rebuildTimeout = 2 * time.Minute

// NewService wires a Service. notifier may be nil.
func NewService(repo *Repository, c cache.Cache, queue tasks.Queue, notifier Notifier, logger *zap.Logger, opts Options) *Service {
	if opts.TallyTTL <= 0 {
		opts.TallyTTL = 10 * time.Minute
	}
	if opts.LeaderboardTTL <= 0 {
		opts.LeaderboardTTL = 24 * time.Hour
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	return &Service{
		repo:     repo,
		cache:    c,
		queue:    queue,
		notifier: notifier,
		logger:   logger,
		opts:     opts,

		generations: xsync.NewMap[uint, uint64](),
	}
}

func tallyKey(gameID uint) string {
	return fmt.Sprintf("tally:%d", gameID)
}

func leaderboardPrefix(gameID uint) string {
	return fmt.Sprintf("leaderboard:%d:", gameID)
}

func leaderboardKey(gameID uint, fingerprint string) string {
	return leaderboardPrefix(gameID) + fingerprint
}

// Tabulate re-codes a game's answers, persists the codes and rebuilds the
// tally and leaderboard. Codes are derived from the stored responses and
// corrections alone, so re-running over the same data yields the same codes
// no matter what earlier runs stored. corrections override fuzzy matching.
func (s *Service) Tabulate(ctx context.Context, gameID uint, corrections models.CorrectionMap) (*TabulationResult, error) {
	start := time.Now()
	defer metrics.ObserveStage("tabulate", start)

	if _, err := s.repo.GetGame(ctx, gameID); err != nil {
		return nil, err
	}

	responses, err := s.repo.Responses(ctx, gameID)
	if err != nil {
		return nil, err
	}

	rollupStart := time.Now()
	codes := rollup.BuildAnswerCodes(responses, corrections)
	metrics.ObserveStage("rollup", rollupStart)

	stats, err := s.repo.ReconcileAnswerCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	metrics.CodesWritten(stats.Inserted, stats.Updated)

	s.logger.Info("Reconciled answer codes",
		zap.Uint("game_id", gameID),
		zap.Int("responses", len(responses)),
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("corrected_questions", len(corrections)))

	if err := s.cache.DeleteByPrefix(ctx, leaderboardPrefix(gameID)); err != nil {
		s.logger.Warn("Failed to invalidate cached leaderboards",
			zap.Uint("game_id", gameID), zap.Error(err))
	}

	tally, err := s.AnswerTally(ctx, gameID, true)
	if err != nil {
		return nil, err
	}
	board, err := s.leaderboardFor(ctx, tally)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.LeaderboardUpdated(gameID, board.Fingerprint)
	}

	return &TabulationResult{Reconcile: stats, Tally: tally, Leaderboard: board}, nil
}

// AnswerTally returns the cached tally for a game, building it on a miss or
// when forceRefresh is set. A forced refresh never joins a build that
// started before it, so it always reflects codes committed before the call.
func (s *Service) AnswerTally(ctx context.Context, gameID uint, forceRefresh bool) (*models.AnswerTally, error) {
	key := tallyKey(gameID)

	var gen uint64
	if forceRefresh {
		gen, _ = s.generations.Compute(gameID, func(current uint64, _ bool) (uint64, xsync.ComputeOp) {
			return current + 1, xsync.UpdateOp
		})
	} else {
		if tally, ok := s.cachedTally(ctx, key); ok {
			return tally, nil
		}
		gen, _ = s.generations.Load(gameID)
	}

	v, err, _ := s.rebuilds.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		buildCtx, cancel := detach(ctx)
		defer cancel()
		return s.buildTally(buildCtx, gameID, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.AnswerTally), nil
}

func (s *Service) cachedTally(ctx context.Context, key string) (*models.AnswerTally, bool) {
	tally, ok, err := cache.GetJSON[models.AnswerTally](ctx, s.cache, key)
	if err != nil {
		s.logger.Warn("Tally cache read failed", zap.String("key", key), zap.Error(err))
	}
	if !ok {
		metrics.CacheMiss(metrics.KindTally)
		return nil, false
	}
	metrics.CacheHit(metrics.KindTally)
	return tally, true
}

// detach keeps a shared rebuild running after the caller that started it
// goes away.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), rebuildTimeout)
}

func (s *Service) buildTally(ctx context.Context, gameID uint, gen uint64) (*models.AnswerTally, error) {
	start := time.Now()
	defer metrics.ObserveStage("tally", start)

	game, err := s.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	responses, err := s.repo.Responses(ctx, gameID)
	if err != nil {
		return nil, err
	}
	codes, err := s.repo.AnswerCodes(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var excluded map[uint]bool
	if s.opts.ExcludeHostAnswers {
		hosts, err := s.repo.HostIDs(ctx, gameID)
		if err != nil {
			return nil, err
		}
		excluded = idSet(hosts)
	}

	tally := BuildAnswerTally(gameID, game.Questions, responses, codes, excluded)

	// The write happens under the generation entry so a refresh cannot
	// start between the check and the write.
	s.generations.Compute(gameID, func(current uint64, _ bool) (uint64, xsync.ComputeOp) {
		if current != gen {
			s.logger.Debug("Skipping superseded tally",
				zap.Uint("game_id", gameID), zap.Uint64("generation", gen), zap.Uint64("current", current))
			return current, xsync.UpdateOp
		}
		if err := cache.SetJSON(ctx, s.cache, tallyKey(gameID), tally, s.opts.TallyTTL); err != nil {
			s.logger.Warn("Failed to cache tally", zap.Uint("game_id", gameID), zap.Error(err))
		}
		return current, xsync.UpdateOp
	})
	s.logger.Debug("Built answer tally",
		zap.Uint("game_id", gameID),
		zap.Int("questions", len(tally.Questions)),
		zap.Duration("took", time.Since(start)))
	return tally, nil
}

// Leaderboard returns the full ranked leaderboard for the game's current
// tally. Tables are cached under the tally fingerprint, so a changed tally
// always misses.
func (s *Service) Leaderboard(ctx context.Context, gameID uint) (*models.LeaderboardTable, error) {
	tally, err := s.AnswerTally(ctx, gameID, false)
	if err != nil {
		return nil, err
	}
	return s.leaderboardFor(ctx, tally)
}

func (s *Service) leaderboardFor(ctx context.Context, tally *models.AnswerTally) (*models.LeaderboardTable, error) {
	key := leaderboardKey(tally.GameID, tally.Fingerprint())

	if table, ok := s.cachedLeaderboard(ctx, key); ok {
		return table, nil
	}

	v, err, _ := s.rebuilds.Do(key, func() (interface{}, error) {
		buildCtx, cancel := detach(ctx)
		defer cancel()
		return s.buildLeaderboard(buildCtx, tally)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.LeaderboardTable), nil
}

func (s *Service) cachedLeaderboard(ctx context.Context, key string) (*models.LeaderboardTable, bool) {
	table, ok, err := cache.GetJSON[models.LeaderboardTable](ctx, s.cache, key)
	if err != nil {
		s.logger.Warn("Leaderboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	if !ok {
		metrics.CacheMiss(metrics.KindLeaderboard)
		return nil, false
	}
	metrics.CacheHit(metrics.KindLeaderboard)
	return table, true
}

func (s *Service) buildLeaderboard(ctx context.Context, tally *models.AnswerTally) (*models.LeaderboardTable, error) {
	start := time.Now()
	defer metrics.ObserveStage("leaderboard", start)

	gameID := tally.GameID
	answers, err := s.repo.CodedAnswers(ctx, gameID)
	if err != nil {
		return nil, err
	}

	playerIDs := make([]uint, 0, len(answers))
	seen := make(map[uint]bool)
	for _, a := range answers {
		if !seen[a.PlayerID] {
			seen[a.PlayerID] = true
			playerIDs = append(playerIDs, a.PlayerID)
		}
	}
	players, err := s.repo.PlayerInfo(ctx, gameID, playerIDs)
	if err != nil {
		return nil, err
	}

	table := BuildLeaderboard(tally, answers, players)

	if err := cache.SetJSON(ctx, s.cache, leaderboardKey(gameID, table.Fingerprint), table, s.opts.LeaderboardTTL); err != nil {
		s.logger.Warn("Failed to cache leaderboard", zap.Uint("game_id", gameID), zap.Error(err))
	}

	record, err := s.repo.UpsertLeaderboard(ctx, gameID, table.Fingerprint)
	if err != nil {
		return nil, err
	}
	s.enqueueSnapshot(record.ID, table.Rows)

	s.logger.Info("Built leaderboard",
		zap.Uint("game_id", gameID),
		zap.String("fingerprint", table.Fingerprint),
		zap.Int("players", len(table.Rows)),
		zap.Duration("took", time.Since(start)))
	return table, nil
}

func (s *Service) enqueueSnapshot(leaderboardID uint, rows []models.LeaderboardRow) {
	if s.queue == nil {
		return
	}
	s.queue.Enqueue("rank-score-snapshot", func(ctx context.Context) error {
		err := s.repo.UpsertRankScores(ctx, leaderboardID, rows)
		metrics.SnapshotTask(err)
		return err
	})
}

// FilteredLeaderboard returns one page of the leaderboard narrowed by f.
// Ranks always come from the unfiltered leaderboard.
func (s *Service) FilteredLeaderboard(ctx context.Context, gameID uint, f LeaderboardFilter) (*models.LeaderboardPage, error) {
	table, err := s.Leaderboard(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var members []uint
	if f.TeamID != 0 {
		if members, err = s.repo.TeamMemberIDs(ctx, f.TeamID); err != nil {
			return nil, err
		}
	}

	return Paginate(FilterLeaderboard(table, f, members), f.Page, s.opts.PageSize), nil
}
