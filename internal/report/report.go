// Package report renders tallies and leaderboards as terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/quizitive/commonology-sub000/internal/models"
	"github.com/quizitive/commonology-sub000/internal/tabulation"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintReconcile prints how many answer codes a tabulation wrote.
func PrintReconcile(w io.Writer, gameID uint, stats tabulation.ReconcileStats) {
	fmt.Fprintf(w, "\nGame %d  |  codes inserted: %d  |  updated: %d  |  unchanged: %d\n\n",
		gameID, stats.Inserted, stats.Updated, stats.Unchanged)
}

// PrintTally prints one table per scored question, most popular code first.
func PrintTally(w io.Writer, tally *models.AnswerTally) error {
	for _, q := range tally.Questions {
		fmt.Fprintf(w, "Q%d. %s  (%d answers)\n", q.Number, q.Text, q.Total())

		table := newTable(w)
		table.Header("CODE", "SCORE")
		for _, cs := range q.Scores {
			if err := table.Append(cs.Code, strconv.Itoa(cs.Score)); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// PrintLeaderboard prints a leaderboard page in export column order. Hosts
// are marked with "*".
func PrintLeaderboard(w io.Writer, page *models.LeaderboardPage) error {
	fmt.Fprintf(w, "\nGame %d  |  page %d of %d  |  %d players  |  fingerprint %s\n\n",
		page.GameID, page.Page, page.PageCount, page.Total, shortFingerprint(page.Fingerprint))

	header := page.Header()
	cols := make([]any, 0, len(header))
	for _, h := range header {
		cols = append(cols, h)
	}

	table := newTable(w)
	table.Header(cols...)
	for _, row := range page.Rows {
		host := ""
		if row.IsHost {
			host = "*"
		}
		cells := []string{
			strconv.FormatUint(uint64(row.ID), 10),
			host,
			strconv.Itoa(row.Rank),
			row.Name,
			strconv.Itoa(row.Score),
		}
		for _, a := range row.Answers {
			cells = append(cells, strconv.Itoa(a))
		}
		if err := table.Append(cells); err != nil {
			return err
		}
	}
	return table.Render()
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
