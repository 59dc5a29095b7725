package tabulation

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/quizitive/commonology-sub000/internal/models"
)

// DefaultPageSize is the number of leaderboard rows per page.
const DefaultPageSize = 100

// LeaderboardFilter narrows a leaderboard view. Zero values disable a filter.
type LeaderboardFilter struct {
	PlayerIDs []uint
	// Search holds comma-separated name fragments, matched case-insensitively.
	Search string
	TeamID uint
	Page   int
}

// SearchTerms splits Search into its non-blank, case-folded terms.
func (f LeaderboardFilter) SearchTerms() []string {
	fold := cases.Fold()
	var terms []string
	for _, t := range strings.Split(f.Search, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, fold.String(t))
		}
	}
	return terms
}

// FilterLeaderboard returns a new table holding the rows of table that pass
// the player id filter, then the name search, then team membership.
// teamMembers is only consulted when f.TeamID is set. Ranks are copied
// unchanged from table, and table itself is never modified.
func FilterLeaderboard(table *models.LeaderboardTable, f LeaderboardFilter, teamMembers []uint) *models.LeaderboardTable {
	rows := table.Rows

	if len(f.PlayerIDs) > 0 {
		rows = keepRows(rows, idSet(f.PlayerIDs))
	}

	if terms := f.SearchTerms(); len(terms) > 0 {
		fold := cases.Fold()
		kept := make([]models.LeaderboardRow, 0, len(rows))
		for _, row := range rows {
			name := fold.String(row.Name)
			for _, term := range terms {
				if strings.Contains(name, term) {
					kept = append(kept, row)
					break
				}
			}
		}
		rows = kept
	}

	if f.TeamID != 0 {
		rows = keepRows(rows, idSet(teamMembers))
	}

	out := make([]models.LeaderboardRow, len(rows))
	copy(out, rows)
	return table.WithRows(out)
}

func idSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func keepRows(rows []models.LeaderboardRow, ids map[uint]bool) []models.LeaderboardRow {
	kept := make([]models.LeaderboardRow, 0, len(rows))
	for _, row := range rows {
		if ids[row.ID] {
			kept = append(kept, row)
		}
	}
	return kept
}

// Paginate slices one page out of table. Pages start at 1; a page past the
// end is empty. Rows keep their ranks.
func Paginate(table *models.LeaderboardTable, page, size int) *models.LeaderboardPage {
	if size < 1 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(table.Rows)
	pageCount := (total + size - 1) / size

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &models.LeaderboardPage{
		LeaderboardTable: table.WithRows(table.Rows[start:end]),
		Page:             page,
		PageCount:        pageCount,
		Total:            total,
	}
}
