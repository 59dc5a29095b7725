package tabulation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/quizitive/commonology-sub000/internal/models"
	"github.com/quizitive/commonology-sub000/pkg/cache"
	"github.com/quizitive/commonology-sub000/pkg/database"
	"github.com/quizitive/commonology-sub000/pkg/tasks"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// fixture is a small game:
//
//	q1 (OE) Ontario x2, Ontari0, Quebec, and a removed Quebec
//	q2 (OE) 4 x3, four, 14
//	q3 (OP) two free-form answers that are never scored
//
// Ada hosts the game. Bob and Cleo form the Owls team.
type fixture struct {
	db      *gorm.DB
	game    models.Game
	q1      models.Question
	q2      models.Question
	q3      models.Question
	players map[string]models.Player
	team    models.Team
}

func seedGame(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{db: db, players: make(map[string]models.Player)}

	for _, name := range []string{"Ada", "Bob", "Cleo", "Dev", "Eve"} {
		p := models.Player{DisplayName: name}
		require.NoError(t, db.Create(&p).Error)
		f.players[name] = p
	}

	f.game = models.Game{Name: "Week 1"}
	require.NoError(t, db.Create(&f.game).Error)
	require.NoError(t, db.Exec("INSERT INTO game_hosts (game_id, player_id) VALUES (?, ?)",
		f.game.ID, f.players["Ada"].ID).Error)

	f.q1 = f.question(t, 1, "Name a Canadian province", models.QuestionTypeOpen)
	f.q2 = f.question(t, 2, "How many legs does a dog have?", models.QuestionTypeOpen)
	f.q3 = f.question(t, 3, "Any feedback?", models.QuestionTypeOptional)

	f.respond(t, f.q1, "Ada", "Ontario", false)
	f.respond(t, f.q1, "Bob", "Ontario", false)
	f.respond(t, f.q1, "Cleo", "Ontari0", false)
	f.respond(t, f.q1, "Dev", "Quebec", false)
	f.respond(t, f.q1, "Eve", "Quebec", true)

	f.respond(t, f.q2, "Ada", "4", false)
	f.respond(t, f.q2, "Bob", "four", false)
	f.respond(t, f.q2, "Cleo", "14", false)
	f.respond(t, f.q2, "Dev", "4", false)
	f.respond(t, f.q2, "Eve", "4", false)

	f.respond(t, f.q3, "Ada", "great", false)
	f.respond(t, f.q3, "Bob", "meh", false)

	f.team = models.Team{Name: "Owls"}
	require.NoError(t, db.Create(&f.team).Error)
	for _, name := range []string{"Bob", "Cleo"} {
		require.NoError(t, db.Exec("INSERT INTO team_members (team_id, player_id) VALUES (?, ?)",
			f.team.ID, f.players[name].ID).Error)
	}
	return f
}

func (f *fixture) question(t *testing.T, number int, text, kind string) models.Question {
	t.Helper()
	q := models.Question{GameID: f.game.ID, Number: number, Text: text, Type: kind}
	require.NoError(t, f.db.Create(&q).Error)
	return q
}

func (f *fixture) addPlayer(t *testing.T, name string) models.Player {
	t.Helper()
	p := models.Player{DisplayName: name}
	require.NoError(t, f.db.Create(&p).Error)
	f.players[name] = p
	return p
}

func (f *fixture) respond(t *testing.T, q models.Question, player, raw string, removed bool) {
	t.Helper()
	r := models.Response{QuestionID: q.ID, PlayerID: f.players[player].ID, RawString: raw, Removed: removed}
	require.NoError(t, f.db.Create(&r).Error)
}

func (f *fixture) id(name string) uint {
	return f.players[name].ID
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) LeaderboardUpdated(gameID uint, fingerprint string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, fingerprint)
}

func (n *recordingNotifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type testService struct {
	*Service
	repo     *Repository
	cache    *cache.MemoryCache
	queue    *tasks.PoolQueue
	notifier *recordingNotifier
}

func newTestService(t *testing.T, db *gorm.DB, opts Options) *testService {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := NewRepository(db)
	c := cache.NewMemoryCache()
	queue := tasks.NewPoolQueue(context.Background(), 2, 16, logger)
	t.Cleanup(queue.StopAndWait)
	notifier := &recordingNotifier{}

	return &testService{
		Service:  NewService(repo, c, queue, notifier, logger, opts),
		repo:     repo,
		cache:    c,
		queue:    queue,
		notifier: notifier,
	}
}

// rowsByName indexes leaderboard rows by display name.
func rowsByName(rows []models.LeaderboardRow) map[string]models.LeaderboardRow {
	out := make(map[string]models.LeaderboardRow, len(rows))
	for _, r := range rows {
		out[r.Name] = r
	}
	return out
}
