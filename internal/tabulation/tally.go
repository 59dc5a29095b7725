package tabulation

import (
	"sort"

	"github.com/quizitive/commonology-sub000/internal/models"
)

// BuildAnswerTally sums live responses into their coded answers for every
// scored question. A raw string with no stored code contributes nothing.
// Responses from players in excluded are skipped.
func BuildAnswerTally(
	gameID uint,
	questions []models.Question,
	responses []models.Response,
	codes []models.AnswerCode,
	excluded map[uint]bool,
) *models.AnswerTally {
	codeOf := make(map[codeKey]string, len(codes))
	for _, c := range codes {
		codeOf[codeKey{c.QuestionID, c.RawString}] = c.CodedAnswer
	}

	rawCounts := make(map[uint]map[string]int)
	for _, r := range responses {
		if r.Removed || excluded[r.PlayerID] {
			continue
		}
		if rawCounts[r.QuestionID] == nil {
			rawCounts[r.QuestionID] = make(map[string]int)
		}
		rawCounts[r.QuestionID][r.RawString]++
	}

	scored := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		if q.Scored() {
			scored = append(scored, q)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Number < scored[j].Number })

	tally := &models.AnswerTally{GameID: gameID, Questions: make([]models.QuestionTally, 0, len(scored))}
	for _, q := range scored {
		totals := make(map[string]int)
		for raw, n := range rawCounts[q.ID] {
			code, ok := codeOf[codeKey{q.ID, raw}]
			if !ok {
				continue
			}
			totals[code] += n
		}

		scores := make(models.CodeScores, 0, len(totals))
		for code, score := range totals {
			if score > 0 {
				scores = append(scores, models.CodeScore{Code: code, Score: score})
			}
		}
		sort.Slice(scores, func(i, j int) bool {
			if scores[i].Score != scores[j].Score {
				return scores[i].Score > scores[j].Score
			}
			return scores[i].Code < scores[j].Code
		})

		tally.Questions = append(tally.Questions, models.QuestionTally{
			QuestionID: q.ID,
			Number:     q.Number,
			Text:       q.Text,
			Scores:     scores,
		})
	}
	return tally
}
