package tabulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizitive/commonology-sub000/internal/models"
)

func tallyInputs() ([]models.Question, []models.Response, []models.AnswerCode) {
	questions := []models.Question{
		{ID: 20, Number: 2, Text: "Legs on a dog?", Type: models.QuestionTypeOpen},
		{ID: 10, Number: 1, Text: "A province", Type: models.QuestionTypeOpen},
		{ID: 30, Number: 3, Text: "Feedback", Type: models.QuestionTypeOptional},
	}
	responses := []models.Response{
		{QuestionID: 10, PlayerID: 1, RawString: "Ontario"},
		{QuestionID: 10, PlayerID: 2, RawString: "Ontari0"},
		{QuestionID: 10, PlayerID: 3, RawString: "Quebec"},
		{QuestionID: 10, PlayerID: 4, RawString: "Quebec", Removed: true},
		{QuestionID: 10, PlayerID: 5, RawString: "Manitoba"}, // never coded
		{QuestionID: 10, PlayerID: 6, RawString: "Alberta", Removed: true},
		{QuestionID: 20, PlayerID: 1, RawString: "4"},
		{QuestionID: 20, PlayerID: 2, RawString: "four"},
		{QuestionID: 20, PlayerID: 3, RawString: "14"},
		{QuestionID: 30, PlayerID: 1, RawString: "fun"},
	}
	codes := []models.AnswerCode{
		{QuestionID: 10, RawString: "Ontario", CodedAnswer: "Ontario"},
		{QuestionID: 10, RawString: "Ontari0", CodedAnswer: "Ontario"},
		{QuestionID: 10, RawString: "Quebec", CodedAnswer: "Quebec"},
		{QuestionID: 10, RawString: "Alberta", CodedAnswer: "Alberta"},
		{QuestionID: 20, RawString: "4", CodedAnswer: "4"},
		{QuestionID: 20, RawString: "four", CodedAnswer: "4"},
		{QuestionID: 20, RawString: "14", CodedAnswer: "14"},
		{QuestionID: 30, RawString: "fun", CodedAnswer: "fun"},
	}
	return questions, responses, codes
}

func TestBuildAnswerTally(t *testing.T) {
	questions, responses, codes := tallyInputs()

	tally := BuildAnswerTally(7, questions, responses, codes, nil)

	assert.Equal(t, uint(7), tally.GameID)
	require.Len(t, tally.Questions, 2, "optional questions are not scored")

	q1 := tally.Questions[0]
	assert.Equal(t, uint(10), q1.QuestionID)
	assert.Equal(t, models.CodeScores{{Code: "Ontario", Score: 2}, {Code: "Quebec", Score: 1}}, q1.Scores,
		"orphans and fully removed codes are dropped")

	q2 := tally.Questions[1]
	assert.Equal(t, uint(20), q2.QuestionID)
	assert.Equal(t, models.CodeScores{{Code: "4", Score: 2}, {Code: "14", Score: 1}}, q2.Scores)
}

func TestBuildAnswerTallyTotalsMatchCodedResponses(t *testing.T) {
	questions, responses, codes := tallyInputs()
	tally := BuildAnswerTally(7, questions, responses, codes, nil)

	known := make(map[codeKey]bool)
	for _, c := range codes {
		known[codeKey{c.QuestionID, c.RawString}] = true
	}

	for _, q := range tally.Questions {
		want := 0
		for _, r := range responses {
			if r.QuestionID == q.QuestionID && !r.Removed && known[codeKey{r.QuestionID, r.RawString}] {
				want++
			}
		}
		assert.Equal(t, want, q.Total(), "question %d", q.QuestionID)
		for _, cs := range q.Scores {
			assert.Positive(t, cs.Score)
		}
	}
}

func TestBuildAnswerTallyTiesBreakByCode(t *testing.T) {
	questions := []models.Question{{ID: 1, Number: 1, Type: models.QuestionTypeChoice}}
	responses := []models.Response{
		{QuestionID: 1, PlayerID: 1, RawString: "b"},
		{QuestionID: 1, PlayerID: 2, RawString: "c"},
		{QuestionID: 1, PlayerID: 3, RawString: "a"},
	}
	codes := []models.AnswerCode{
		{QuestionID: 1, RawString: "a", CodedAnswer: "a"},
		{QuestionID: 1, RawString: "b", CodedAnswer: "b"},
		{QuestionID: 1, RawString: "c", CodedAnswer: "c"},
	}

	tally := BuildAnswerTally(1, questions, responses, codes, nil)
	assert.Equal(t, models.CodeScores{{Code: "a", Score: 1}, {Code: "b", Score: 1}, {Code: "c", Score: 1}}, tally.Questions[0].Scores)
}

func TestBuildAnswerTallyExcludesPlayers(t *testing.T) {
	questions, responses, codes := tallyInputs()

	tally := BuildAnswerTally(7, questions, responses, codes, map[uint]bool{1: true})

	assert.Equal(t, models.CodeScores{{Code: "Ontario", Score: 1}, {Code: "Quebec", Score: 1}}, tally.Questions[0].Scores)
	assert.Equal(t, models.CodeScores{{Code: "14", Score: 1}, {Code: "4", Score: 1}}, tally.Questions[1].Scores)
}

func TestBuildAnswerTallyEmpty(t *testing.T) {
	questions := []models.Question{{ID: 1, Number: 1, Type: models.QuestionTypeOpen}}

	tally := BuildAnswerTally(3, questions, nil, nil, nil)

	require.Len(t, tally.Questions, 1)
	assert.Empty(t, tally.Questions[0].Scores)
	assert.Zero(t, tally.Questions[0].Total())
}

func TestTallyFingerprint(t *testing.T) {
	questions, responses, codes := tallyInputs()
	tally := BuildAnswerTally(1, questions, responses, codes, nil)

	reordered := &models.AnswerTally{GameID: 1}
	for i := len(tally.Questions) - 1; i >= 0; i-- {
		q := tally.Questions[i]
		scores := make(models.CodeScores, len(q.Scores))
		for j, cs := range q.Scores {
			scores[len(q.Scores)-1-j] = cs
		}
		reordered.Questions = append(reordered.Questions, models.QuestionTally{QuestionID: q.QuestionID, Scores: scores})
	}
	assert.Equal(t, tally.Fingerprint(), reordered.Fingerprint(), "order does not matter")
	assert.Len(t, tally.Fingerprint(), 64)

	otherGame := *tally
	otherGame.GameID = 2
	assert.NotEqual(t, tally.Fingerprint(), otherGame.Fingerprint())

	responses = append(responses, models.Response{QuestionID: 20, PlayerID: 7, RawString: "4"})
	assert.NotEqual(t, tally.Fingerprint(), BuildAnswerTally(1, questions, responses, codes, nil).Fingerprint())
}
