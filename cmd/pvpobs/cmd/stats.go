/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/stats"
)

type statsOutput struct {
	Players []*stats.PlayerStats `json:"players"`
	Summary stats.Summary        `json:"summary"`
}

func newStatsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "stats [source]",
		Short: "Rank players into tiers",
		Long: `Aggregate the newest 200 matches per player and rank players into tiers
T0 to T5 by a blend of KDA and average damage percentiles.

Without a source the archive is used. With one, the source is recovered
first, like "pvpobs recover".

Examples:
  pvpobs stats LiteDB.db
  pvpobs stats --limit 20
  pvpobs stats --format json --publish`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStats,
	}

	c.Flags().StringP("format", "f", formatTable, "Output format (table, json)")
	c.Flags().IntP("limit", "n", 0, "Show at most this many players (0 for all)")
	c.Flags().Bool("summary", false, "Print the distribution summary after the table")
	c.Flags().Bool("publish", false, "Write the leaderboard and summary to Redis")
	return c
}

func runStats(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	limit, _ := cmd.Flags().GetInt("limit")
	showSummary, _ := cmd.Flags().GetBool("summary")
	publish, _ := cmd.Flags().GetBool("publish")

	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown format %q", format)
	}

	matches, err := statsSource(cmd, args)
	if err != nil {
		return err
	}

	players := stats.Aggregate(matches)
	summary := stats.Summarize(players, matches)

	if publish {
		w := container.Cache()
		if w == nil {
			return errNoRedis
		}
		if err := w.WriteLeaderboard(cmd.Context(), players); err != nil {
			return fmt.Errorf("failed to publish leaderboard: %w", err)
		}
		if err := w.WriteSummary(cmd.Context(), summary); err != nil {
			return fmt.Errorf("failed to publish summary: %w", err)
		}
	}

	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}

	out := cmd.OutOrStdout()
	if format == formatJSON {
		return writeJSON(out, statsOutput{Players: players, Summary: summary}, true)
	}
	if err := writePlayersTable(out, players); err != nil {
		return err
	}
	if showSummary {
		fmt.Fprintln(out)
		return writeSummary(out, summary)
	}
	return nil
}

func statsSource(cmd *cobra.Command, args []string) ([]match.MatchRecord, error) {
	if len(args) == 1 {
		res, err := container.Engine().Load(cmd.Context(), args[0])
		if err != nil {
			return nil, err
		}
		return res.Matches(), nil
	}

	a, err := container.Archive()
	if err != nil {
		return nil, err
	}
	return a.Matches()
}
