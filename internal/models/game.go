// internal/models/game.go
package models

import (
	"time"
)

// Question types. Only free-text and multiple-choice questions are scored.
const (
	QuestionTypeOpen     = "OE"
	QuestionTypeChoice   = "MC"
	QuestionTypeOptional = "OP"
)

// Game is a weekly question set.
type Game struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Name      string     `json:"name" gorm:"not null"`
	Hosts     []Player   `json:"hosts,omitempty" gorm:"many2many:game_hosts;"`
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:GameID"`
}

type Question struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GameID    uint      `json:"game_id" gorm:"not null;uniqueIndex:idx_question_game_number"`
	Number    int       `json:"number" gorm:"not null;uniqueIndex:idx_question_game_number"`
	Text      string    `json:"text" gorm:"not null"`
	Type      string    `json:"type" gorm:"not null;default:OE"`
}

// Scored reports whether answers to the question count toward a player's score.
func (q Question) Scored() bool {
	return q.Type == QuestionTypeOpen || q.Type == QuestionTypeChoice
}

// Player mirrors the identity owned by the user subsystem.
type Player struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	DisplayName string    `json:"display_name"`
}

type Team struct {
	ID      uint     `json:"id" gorm:"primaryKey"`
	Name    string   `json:"name" gorm:"not null"`
	Members []Player `json:"members,omitempty" gorm:"many2many:team_members;"`
}

// Response is a raw answer as submitted. Removed responses are kept for
// history but never scored.
type Response struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time `json:"created_at"`
	QuestionID uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_response_player_question;index"`
	PlayerID   uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_response_player_question"`
	RawString  string    `json:"raw_string"`
	Removed    bool      `json:"removed" gorm:"not null;default:false"`
}

// AnswerCode maps a raw answer to its canonical coded answer. Rows are
// upserted on (question_id, raw_string) and never deleted by tabulation.
type AnswerCode struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	QuestionID  uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_code_question_raw"`
	RawString   string    `json:"raw_string" gorm:"not null;uniqueIndex:idx_code_question_raw"`
	CodedAnswer string    `json:"coded_answer" gorm:"not null"`
}

// Leaderboard records the most recent build for a game. Snapshots of each
// player's rank and score hang off its ID.
type Leaderboard struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	GameID      uint      `json:"game_id" gorm:"not null;uniqueIndex"`
	Fingerprint string    `json:"fingerprint" gorm:"not null"`
	BuiltAt     time.Time `json:"built_at"`
}

type PlayerRankScore struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LeaderboardID uint      `json:"leaderboard_id" gorm:"not null;uniqueIndex:idx_rank_score_leaderboard_player"`
	PlayerID      uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_rank_score_leaderboard_player"`
	Rank          int       `json:"rank"`
	Score         int       `json:"score"`
}

// CodedAnswer is one row of the player-major answer stream used to build a
// leaderboard. CodedAnswer is nil when the raw string was never coded.
type CodedAnswer struct {
	PlayerID    uint
	QuestionID  uint
	Number      int
	CodedAnswer *string
}

// PlayerInfo carries the read-only player attributes a leaderboard needs.
type PlayerInfo struct {
	DisplayName string
	IsHost      bool
}

// CorrectionMap holds human overrides per question: raw string -> coded answer.
type CorrectionMap map[uint]map[string]string

// AnswerCodes is the rollup output per question: coded answer -> raw strings.
type AnswerCodes map[uint]map[string][]string

// All lists every model that needs a table.
func All() []interface{} {
	return []interface{}{
		&Player{},
		&Game{},
		&Question{},
		&Team{},
		&Response{},
		&AnswerCode{},
		&Leaderboard{},
		&PlayerRankScore{},
	}
}
