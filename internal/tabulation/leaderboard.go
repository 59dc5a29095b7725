package tabulation

import (
	"sort"

	"github.com/quizitive/commonology-sub000/internal/models"
)

// BuildLeaderboard scores every player found in answers against tally.
// answers is expected in player-major order; each scored question gets one
// column, in tally order. An answer whose code is missing from the tally
// scores 0. Answers to unscored questions are ignored, and a player with no
// scored answers gets no row.
func BuildLeaderboard(tally *models.AnswerTally, answers []models.CodedAnswer, players map[uint]models.PlayerInfo) *models.LeaderboardTable {
	table := &models.LeaderboardTable{
		GameID:      tally.GameID,
		Fingerprint: tally.Fingerprint(),
		Columns:     make([]string, 0, len(tally.Questions)),
		QuestionIDs: make([]uint, 0, len(tally.Questions)),
		Rows:        []models.LeaderboardRow{},
	}

	column := make(map[uint]int, len(tally.Questions))
	for i, q := range tally.Questions {
		column[q.QuestionID] = i
		table.Columns = append(table.Columns, q.Text)
		table.QuestionIDs = append(table.QuestionIDs, q.QuestionID)
	}
	scores := tally.ScoreIndex()

	rowOf := make(map[uint]int)
	for _, a := range answers {
		col, ok := column[a.QuestionID]
		if !ok {
			continue
		}

		idx, ok := rowOf[a.PlayerID]
		if !ok {
			info := players[a.PlayerID]
			table.Rows = append(table.Rows, models.LeaderboardRow{
				ID:      a.PlayerID,
				IsHost:  info.IsHost,
				Name:    info.DisplayName,
				Answers: make([]int, len(table.Columns)),
			})
			idx = len(table.Rows) - 1
			rowOf[a.PlayerID] = idx
		}

		if a.CodedAnswer == nil {
			continue
		}
		table.Rows[idx].Answers[col] = scores[a.QuestionID][*a.CodedAnswer]
	}

	for i := range table.Rows {
		total := 0
		for _, cell := range table.Rows[i].Answers {
			total += cell
		}
		table.Rows[i].Score = total
	}

	RankRows(table.Rows)
	return table
}

// RankRows orders rows by score descending, then name and id, and assigns
// competition ranks (1, 2, 2, 4): equal scores share the lower rank, and a
// player's rank is one more than the number of players scoring strictly
// higher.
func RankRows(rows []models.LeaderboardRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})

	for i := range rows {
		if i > 0 && rows[i].Score == rows[i-1].Score {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}
