/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/stats"
)

func newArchiveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "archive",
		Short: "Inspect the match archive",
		Long: `Inspect and edit the archive of recovered matches kept in the data
directory. Matches get there through "pvpobs recover --archive" or uploads
to the REST API.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived matches, newest first",
		Args:  cobra.NoArgs,
		RunE:  runArchiveList,
	}
	list.Flags().IntP("limit", "n", 50, "Show at most this many matches (0 for all)")
	list.Flags().StringP("format", "f", formatTable, "Output format (table, json)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one match with each player's overall figures",
		Args:  cobra.ExactArgs(1),
		RunE:  runArchiveShow,
	}

	count := &cobra.Command{
		Use:   "count",
		Short: "Print the number of archived matches",
		Args:  cobra.NoArgs,
		RunE:  runArchiveCount,
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived match",
		Args:  cobra.ExactArgs(1),
		RunE:  runArchiveDelete,
	}

	export := &cobra.Command{
		Use:   "export",
		Short: `Print the archive as a {"flmatch": [...]} export`,
		Long: `Print every archived match, newest first, as one {"flmatch": [...]}
document in the same shape "pvpobs recover" prints.`,
		Args: cobra.NoArgs,
		RunE: runArchiveExport,
	}
	export.Flags().Bool("pretty", false, "Indent JSON output")

	c.AddCommand(list, show, count, del, export)
	return c
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	a, err := container.Archive()
	if err != nil {
		return err
	}
	stored, err := a.List(limit)
	if err != nil {
		return err
	}

	if format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), stored, true)
	}
	return writeMatchesTable(cmd.OutOrStdout(), stored)
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	id, err := ksuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid match id %q: %w", args[0], err)
	}

	a, err := container.Archive()
	if err != nil {
		return err
	}
	m, err := a.Get(id)
	if err != nil {
		return err
	}
	all, err := a.Matches()
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), struct {
		ID      string              `json:"id"`
		Match   match.MatchRecord   `json:"match"`
		Players []stats.MatchPlayer `json:"players"`
	}{id.String(), m, stats.MatchView(m, stats.Aggregate(all))}, true)
}

func runArchiveCount(cmd *cobra.Command, args []string) error {
	a, err := container.Archive()
	if err != nil {
		return err
	}
	n, err := a.Count()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}

func runArchiveDelete(cmd *cobra.Command, args []string) error {
	id, err := ksuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid match id %q: %w", args[0], err)
	}
	a, err := container.Archive()
	if err != nil {
		return err
	}
	if err := a.Delete(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted match %s\n", id)
	return nil
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	indent, _ := cmd.Flags().GetBool("pretty")

	a, err := container.Archive()
	if err != nil {
		return err
	}
	matches, err := a.Matches()
	if err != nil {
		return err
	}
	if matches == nil {
		matches = []match.MatchRecord{}
	}
	return writeJSON(cmd.OutOrStdout(), match.Collections{codec.CollectionFlMatch: matches}, indent)
}
