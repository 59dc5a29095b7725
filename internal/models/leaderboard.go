// internal/models/leaderboard.go
package models

// Fixed leading columns of an exported leaderboard.
var leaderboardColumns = []string{"id", "is_host", "Rank", "Name", "Score"}

type LeaderboardRow struct {
	ID      uint   `json:"id"`
	IsHost  bool   `json:"is_host"`
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Answers []int  `json:"answers"` // one cell per scored question, in Columns order
}

// LeaderboardTable is the wide leaderboard: one row per player, one answer
// column per scored question.
type LeaderboardTable struct {
	GameID      uint             `json:"game_id"`
	Fingerprint string           `json:"fingerprint"`
	Columns     []string         `json:"columns"`
	QuestionIDs []uint           `json:"question_ids"`
	Rows        []LeaderboardRow `json:"rows"`
}

// Header returns the export column order.
func (t *LeaderboardTable) Header() []string {
	header := make([]string, 0, len(leaderboardColumns)+len(t.Columns))
	header = append(header, leaderboardColumns...)
	return append(header, t.Columns...)
}

// Records returns the rows as flat records matching Header.
func (t *LeaderboardTable) Records() [][]interface{} {
	records := make([][]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make([]interface{}, 0, len(leaderboardColumns)+len(row.Answers))
		record = append(record, row.ID, row.IsHost, row.Rank, row.Name, row.Score)
		for _, a := range row.Answers {
			record = append(record, a)
		}
		records = append(records, record)
	}
	return records
}

// WithRows returns a table sharing t's metadata but holding rows instead.
// t itself is left untouched.
func (t *LeaderboardTable) WithRows(rows []LeaderboardRow) *LeaderboardTable {
	return &LeaderboardTable{
		GameID:      t.GameID,
		Fingerprint: t.Fingerprint,
		Columns:     t.Columns,
		QuestionIDs: t.QuestionIDs,
		Rows:        rows,
	}
}

type LeaderboardPage struct {
	*LeaderboardTable
	Page      int `json:"page"`
	PageCount int `json:"page_count"`
	Total     int `json:"total"`
}
