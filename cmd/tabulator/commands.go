package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quizitive/commonology-sub000/internal/models"
	"github.com/quizitive/commonology-sub000/internal/report"
	"github.com/quizitive/commonology-sub000/internal/tabulation"
	"github.com/quizitive/commonology-sub000/pkg/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(a.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newTabulateCmd(a *app) *cobra.Command {
	var correctionsPaths []string

	cmd := &cobra.Command{
		Use:   "tabulate <gameID>",
		Short: "Code a game's answers and rebuild its tally and leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := tabulation.ParseID(args[0])
			if err != nil {
				return err
			}

			var corrections models.CorrectionMap
			for _, path := range correctionsPaths {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read corrections: %w", err)
				}
				parsed, err := tabulation.ParseCorrections(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				corrections = tabulation.MergeCorrections(corrections, parsed)
			}

			svc, err := a.tabulationService(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.Tabulate(cmd.Context(), gameID, corrections)
			if err != nil {
				return fmt.Errorf("tabulate game %d: %w", gameID, err)
			}

			out := cmd.OutOrStdout()
			report.PrintReconcile(out, gameID, result.Reconcile)
			return report.PrintLeaderboard(out, tabulation.Paginate(result.Leaderboard, 1, a.cfg.PageSize))
		},
	}
	cmd.Flags().StringArrayVar(&correctionsPaths, "corrections", nil, "YAML or JSON corrections file keyed by question id; repeat to layer files, later ones win")
	return cmd
}

func newTallyCmd(a *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "tally <gameID>",
		Short: "Show the answer tally of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := tabulation.ParseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.tabulationService(cmd.Context())
			if err != nil {
				return err
			}
			tally, err := svc.AnswerTally(cmd.Context(), gameID, refresh)
			if err != nil {
				return fmt.Errorf("tally game %d: %w", gameID, err)
			}
			return report.PrintTally(cmd.OutOrStdout(), tally)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rebuild instead of reading the cache")
	return cmd
}

func newLeaderboardCmd(a *app) *cobra.Command {
	var filter tabulation.LeaderboardFilter
	var ids string

	cmd := &cobra.Command{
		Use:   "leaderboard <gameID>",
		Short: "Show a game's leaderboard, optionally filtered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := tabulation.ParseID(args[0])
			if err != nil {
				return err
			}
			for _, part := range strings.Split(ids, ",") {
				if part = strings.TrimSpace(part); part == "" {
					continue
				}
				id, err := tabulation.ParseID(part)
				if err != nil {
					return fmt.Errorf("--ids: %w", err)
				}
				filter.PlayerIDs = append(filter.PlayerIDs, id)
			}

			svc, err := a.tabulationService(cmd.Context())
			if err != nil {
				return err
			}
			page, err := svc.FilteredLeaderboard(cmd.Context(), gameID, filter)
			if err != nil {
				return fmt.Errorf("leaderboard for game %d: %w", gameID, err)
			}
			return report.PrintLeaderboard(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "comma-separated name fragments")
	cmd.Flags().UintVar(&filter.TeamID, "team", 0, "only members of this team")
	cmd.Flags().StringVar(&ids, "ids", "", "comma-separated player ids")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	return cmd
}
