package tabulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizitive/commonology-sub000/internal/models"
)

func TestGetGameOrdersQuestions(t *testing.T) {
	db := openTestDB(t)
	f := seedGame(t, db)
	repo := NewRepository(db)

	game, err := repo.GetGame(context.Background(), f.game.ID)
	require.NoError(t, err)
	require.Len(t, game.Questions, 3)
	for i, q := range game.Questions {
		assert.Equal(t, i+1, q.Number)
	}

	_, err = repo.GetGame(context.Background(), f.game.ID+100)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestHostsAndTeams(t *testing.T) {
	db := openTestDB(t)
	f := seedGame(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	hosts, err := repo.HostIDs(ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.id("Ada")}, hosts)

	members, err := repo.TeamMemberIDs(ctx, f.team.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.id("Bob"), f.id("Cleo")}, members)

	info, err := repo.PlayerInfo(ctx, f.game.ID, []uint{f.id("Ada"), f.id("Dev")})
	require.NoError(t, err)
	assert.Equal(t, models.PlayerInfo{DisplayName: "Ada", IsHost: true}, info[f.id("Ada")])
	assert.Equal(t, models.PlayerInfo{DisplayName: "Dev"}, info[f.id("Dev")])
}

func TestDiffAnswerCodes(t *testing.T) {
	existing := []models.AnswerCode{
		{QuestionID: 1, RawString: "Ontario", CodedAnswer: "Ontario"},
		{QuestionID: 1, RawString: "Quebec", CodedAnswer: "Quebec"},
		{QuestionID: 2, RawString: "stale", CodedAnswer: "stale"},
	}
	computed := models.AnswerCodes{
		1: {"Ontario": {"Ontario", "Quebec", "Ontari0"}},
		2: {"4": {"4"}},
	}

	delta, stats := DiffAnswerCodes(existing, computed)

	assert.Equal(t, ReconcileStats{Inserted: 2, Updated: 1, Unchanged: 1}, stats)
	assert.Equal(t, []models.AnswerCode{
		{QuestionID: 1, RawString: "Ontari0", CodedAnswer: "Ontario"},
		{QuestionID: 1, RawString: "Quebec", CodedAnswer: "Ontario"},
		{QuestionID: 2, RawString: "4", CodedAnswer: "4"},
	}, delta)
}

func TestReconcileAnswerCodesUpsertsWithoutDuplicates(t *testing.T) {
	db := openTestDB(t)
	f := seedGame(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	codes := models.AnswerCodes{
		f.q1.ID: {"Ontario": {"Ontario", "Ontari0"}, "Quebec": {"Quebec"}},
	}

	stats, err := repo.ReconcileAnswerCodes(ctx, codes)
	require.NoError(t, err)
	assert.Equal(t, ReconcileStats{Inserted: 3}, stats)

	stats, err = repo.ReconcileAnswerCodes(ctx, codes)
	require.NoError(t, err)
	assert.Equal(t, ReconcileStats{Unchanged: 3}, stats)
	assert.Zero(t, stats.Written())

	before, err := repo.AnswerCodes(ctx, f.game.ID)
	require.NoError(t, err)

	// A human folds Quebec into Ontario; the row keeps its identity.
	recoded := models.AnswerCodes{
		f.q1.ID: {"Ontario": {"Ontario", "Ontari0", "Quebec"}},
	}
	stats, err = repo.ReconcileAnswerCodes(ctx, recoded)
	require.NoError(t, err)
	assert.Equal(t, ReconcileStats{Updated: 1, Unchanged: 2}, stats)

	after, err := repo.AnswerCodes(ctx, f.game.ID)
	require.NoError(t, err)
	require.Len(t, after, 3)

	ids := make(map[string]uint)
	for _, c := range before {
		ids[c.RawString] = c.ID
	}
	for _, c := range after {
		assert.Equal(t, ids[c.RawString], c.ID, c.RawString)
		assert.Equal(t, "Ontario", c.CodedAnswer, c.RawString)
	}
}

func TestCodedAnswersLeavesOrphansNil(t *testing.T) {
	db := openTestDB(t)
	f := seedGame(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.ReconcileAnswerCodes(ctx, models.AnswerCodes{
		f.q1.ID: {"Ontario": {"Ontario"}},
	})
	require.NoError(t, err)

	answers, err := repo.CodedAnswers(ctx, f.game.ID)
	require.NoError(t, err)

	// Eve's removed q1 answer is not streamed.
	require.Len(t, answers, 11)
	for i := 1; i < len(answers); i++ {
		prev, cur := answers[i-1], answers[i]
		ordered := prev.PlayerID < cur.PlayerID ||
			(prev.PlayerID == cur.PlayerID && prev.Number < cur.Number)
		assert.True(t, ordered, "answers out of order at %d", i)
	}

	for _, a := range answers {
		if a.PlayerID == f.id("Ada") && a.QuestionID == f.q1.ID {
			require.NotNil(t, a.CodedAnswer)
			assert.Equal(t, "Ontario", *a.CodedAnswer)
			continue
		}
		if a.PlayerID == f.id("Dev") && a.QuestionID == f.q1.ID {
			assert.Nil(t, a.CodedAnswer)
		}
	}
}

func TestUpsertRankScoresIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	f := seedGame(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	board, err := repo.UpsertLeaderboard(ctx, f.game.ID, "first")
	require.NoError(t, err)

	rows := []models.LeaderboardRow{
		{ID: f.id("Ada"), Rank: 1, Score: 7},
		{ID: f.id("Bob"), Rank: 2, Score: 5},
	}
	require.NoError(t, repo.UpsertRankScores(ctx, board.ID, rows))
	require.NoError(t, repo.UpsertRankScores(ctx, board.ID, rows))

	rows[1].Rank, rows[1].Score = 1, 7
	require.NoError(t, repo.UpsertRankScores(ctx, board.ID, rows))

	scores, err := repo.RankScores(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 1, scores[1].Rank)
	assert.Equal(t, 7, scores[1].Score)

	again, err := repo.UpsertLeaderboard(ctx, f.game.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, board.ID, again.ID)
	assert.Equal(t, "second", again.Fingerprint)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}
