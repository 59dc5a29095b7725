// internal/tabulation/repository.go
package tabulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quizitive/commonology-sub000/internal/models"
)

// ErrGameNotFound is returned when a game id has no row.
var ErrGameNotFound = errors.New("game not found")

const upsertBatchSize = 500

// ReconcileStats counts what a reconciliation wrote.
type ReconcileStats struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Written is the number of rows the reconciliation touched.
func (s ReconcileStats) Written() int {
	return s.Inserted + s.Updated
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetGame loads a game with its questions in number order.
func (r *Repository) GetGame(ctx context.Context, gameID uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("number")
		}).
		First(&game, gameID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("game %d: %w", gameID, ErrGameNotFound)
		}
		return nil, fmt.Errorf("load game %d: %w", gameID, err)
	}
	return &game, nil
}

func (r *Repository) gameQuestionIDs(gameID uint) *gorm.DB {
	return r.db.Model(&models.Question{}).Select("id").Where("game_id = ?", gameID)
}

// Responses returns every response to the game's questions, removed ones
// included.
func (r *Repository) Responses(ctx context.Context, gameID uint) ([]models.Response, error) {
	var responses []models.Response
	err := r.db.WithContext(ctx).
		Where("question_id IN (?)", r.gameQuestionIDs(gameID)).
		Order("id").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("load responses for game %d: %w", gameID, err)
	}
	return responses, nil
}

// AnswerCodes returns the stored codes for the game's questions.
func (r *Repository) AnswerCodes(ctx context.Context, gameID uint) ([]models.AnswerCode, error) {
	var codes []models.AnswerCode
	err := r.db.WithContext(ctx).
		Where("question_id IN (?)", r.gameQuestionIDs(gameID)).
		Order("question_id, raw_string").
		Find(&codes).Error
	if err != nil {
		return nil, fmt.Errorf("load answer codes for game %d: %w", gameID, err)
	}
	return codes, nil
}

func (r *Repository) HostIDs(ctx context.Context, gameID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Table("game_hosts").
		Where("game_id = ?", gameID).
		Pluck("player_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load hosts for game %d: %w", gameID, err)
	}
	return ids, nil
}

func (r *Repository) TeamMemberIDs(ctx context.Context, teamID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Table("team_members").
		Where("team_id = ?", teamID).
		Pluck("player_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load members of team %d: %w", teamID, err)
	}
	return ids, nil
}

// PlayerInfo returns display names and host flags for playerIDs.
func (r *Repository) PlayerInfo(ctx context.Context, gameID uint, playerIDs []uint) (map[uint]models.PlayerInfo, error) {
	info := make(map[uint]models.PlayerInfo, len(playerIDs))
	if len(playerIDs) == 0 {
		return info, nil
	}

	hosts, err := r.HostIDs(ctx, gameID)
	if err != nil {
		return nil, err
	}
	isHost := make(map[uint]bool, len(hosts))
	for _, id := range hosts {
		isHost[id] = true
	}

	var players []models.Player
	err = r.db.WithContext(ctx).
		Where("id IN ?", playerIDs).
		FindInBatches(&players, upsertBatchSize, func(tx *gorm.DB, batch int) error {
			for _, p := range players {
				info[p.ID] = models.PlayerInfo{DisplayName: p.DisplayName, IsHost: isHost[p.ID]}
			}
			return nil
		}).Error
	if err != nil {
		return nil, fmt.Errorf("load players for game %d: %w", gameID, err)
	}
	return info, nil
}

const codedAnswersQuery = `
SELECT r.player_id AS player_id,
       r.question_id AS question_id,
       q.number AS number,
       c.coded_answer AS coded_answer
FROM responses r
JOIN questions q ON q.id = r.question_id
LEFT JOIN answer_codes c ON c.question_id = r.question_id AND c.raw_string = r.raw_string
WHERE q.game_id = ? AND r.removed = ?
ORDER BY r.player_id, q.number`

// CodedAnswers streams the game's live answers in player-major, question
// number minor order. A raw string with no code yields a nil CodedAnswer.
func (r *Repository) CodedAnswers(ctx context.Context, gameID uint) ([]models.CodedAnswer, error) {
	var answers []models.CodedAnswer
	if err := r.db.WithContext(ctx).Raw(codedAnswersQuery, gameID, false).Scan(&answers).Error; err != nil {
		return nil, fmt.Errorf("load coded answers for game %d: %w", gameID, err)
	}
	return answers, nil
}

type codeKey struct {
	questionID uint
	raw        string
}

// DiffAnswerCodes compares freshly computed codes with the stored rows and
// returns the rows that must be written, ordered by question then raw
// string.
func DiffAnswerCodes(existing []models.AnswerCode, computed models.AnswerCodes) ([]models.AnswerCode, ReconcileStats) {
	stored := make(map[codeKey]string, len(existing))
	for _, c := range existing {
		stored[codeKey{c.QuestionID, c.RawString}] = c.CodedAnswer
	}

	var wanted []models.AnswerCode
	for qid, groups := range computed {
		for code, raws := range groups {
			for _, raw := range raws {
				wanted = append(wanted, models.AnswerCode{QuestionID: qid, RawString: raw, CodedAnswer: code})
			}
		}
	}
	sort.Slice(wanted, func(i, j int) bool {
		if wanted[i].QuestionID != wanted[j].QuestionID {
			return wanted[i].QuestionID < wanted[j].QuestionID
		}
		return wanted[i].RawString < wanted[j].RawString
	})

	var stats ReconcileStats
	delta := make([]models.AnswerCode, 0, len(wanted))
	for _, w := range wanted {
		current, ok := stored[codeKey{w.QuestionID, w.RawString}]
		switch {
		case !ok:
			stats.Inserted++
		case current != w.CodedAnswer:
			stats.Updated++
		default:
			stats.Unchanged++
			continue
		}
		delta = append(delta, w)
	}
	return delta, stats
}

// ReconcileAnswerCodes upserts computed codes keyed by (question_id,
// raw_string). Existing rows keep their identity and only change
// coded_answer. Nothing is deleted.
func (r *Repository) ReconcileAnswerCodes(ctx context.Context, computed models.AnswerCodes) (ReconcileStats, error) {
	if len(computed) == 0 {
		return ReconcileStats{}, nil
	}

	questionIDs := make([]uint, 0, len(computed))
	for qid := range computed {
		questionIDs = append(questionIDs, qid)
	}

	var existing []models.AnswerCode
	if err := r.db.WithContext(ctx).Where("question_id IN ?", questionIDs).Find(&existing).Error; err != nil {
		return ReconcileStats{}, fmt.Errorf("load existing answer codes: %w", err)
	}

	delta, stats := DiffAnswerCodes(existing, computed)
	if len(delta) == 0 {
		return stats, nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_id"}, {Name: "raw_string"}},
			DoUpdates: clause.AssignmentColumns([]string{"coded_answer", "updated_at"}),
		}).
		CreateInBatches(&delta, upsertBatchSize).Error
	if err != nil {
		return ReconcileStats{}, fmt.Errorf("upsert %d answer codes: %w", len(delta), err)
	}
	return stats, nil
}

// UpsertLeaderboard records the latest build of a game's leaderboard.
func (r *Repository) UpsertLeaderboard(ctx context.Context, gameID uint, fingerprint string) (*models.Leaderboard, error) {
	board := models.Leaderboard{GameID: gameID, Fingerprint: fingerprint, BuiltAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"fingerprint", "built_at", "updated_at"}),
		}).
		Create(&board).Error
	if err != nil {
		return nil, fmt.Errorf("upsert leaderboard for game %d: %w", gameID, err)
	}

	// The returned id is not reliable across drivers after a conflict update.
	var stored models.Leaderboard
	if err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload leaderboard for game %d: %w", gameID, err)
	}
	return &stored, nil
}

// UpsertRankScores snapshots each row's rank and score. Safe to repeat.
func (r *Repository) UpsertRankScores(ctx context.Context, leaderboardID uint, rows []models.LeaderboardRow) error {
	if len(rows) == 0 {
		return nil
	}
	snapshots := make([]models.PlayerRankScore, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, models.PlayerRankScore{
			LeaderboardID: leaderboardID,
			PlayerID:      row.ID,
			Rank:          row.Rank,
			Score:         row.Score,
		})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "leaderboard_id"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rank", "score", "updated_at"}),
		}).
		CreateInBatches(&snapshots, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("snapshot %d rank scores for leaderboard %d: %w", len(snapshots), leaderboardID, err)
	}
	return nil
}

func (r *Repository) RankScores(ctx context.Context, leaderboardID uint) ([]models.PlayerRankScore, error) {
	var scores []models.PlayerRankScore
	err := r.db.WithContext(ctx).
		Where("leaderboard_id = ?", leaderboardID).
		Order("player_id").
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("load rank scores for leaderboard %d: %w", leaderboardID, err)
	}
	return scores, nil
}

// ParseID parses a path or flag id.
func ParseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}
