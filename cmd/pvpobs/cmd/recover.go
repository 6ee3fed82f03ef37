/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/pvpobserver/pkg/engine"
)

var errNoRedis = errors.New("redis.addr is not configured")

func newRecoverCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "recover <source>",
		Short: "Recover the flmatch collection from a store",
		Long: `Recover match records from a LiteDB store image, a compressed copy of
one, or a {"flmatch": [...]} JSON export, and print them as JSON.

The source is a file path, "-" for standard input, or an http(s) URL.
gzip, zstd, lz4 and snappy/s2 containers are unwrapped automatically.

Examples:
  pvpobs recover LiteDB.db --pretty
  pvpobs recover LiteDB.db.zst --archive --report
  pvpobs recover https://example.com/export.json -o matches.json`,
		Args: cobra.ExactArgs(1),
		RunE: runRecover,
	}

	c.Flags().StringP("output", "o", "", "Write JSON to this file instead of stdout")
	c.Flags().Bool("pretty", false, "Indent JSON output")
	c.Flags().Bool("archive", false, "Store recovered matches in the archive")
	c.Flags().Bool("publish", false, "Publish recovered matches to Redis")
	c.Flags().Bool("report", false, "Print a recovery report to stderr")
	return c
}

func runRecover(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	indent, _ := cmd.Flags().GetBool("pretty")
	archive, _ := cmd.Flags().GetBool("archive")
	publish, _ := cmd.Flags().GetBool("publish")
	report, _ := cmd.Flags().GetBool("report")

	res, err := container.Engine().Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if archive {
		a, err := container.Archive()
		if err != nil {
			return err
		}
		put, err := a.Put(res.Matches())
		if err != nil {
			return fmt.Errorf("failed to archive matches: %w", err)
		}
		cmd.PrintErrf("Archived %d new matches (%d already present)\n", put.Added, put.Duplicates)
	}

	if publish {
		if err := publishResult(cmd, args[0], res); err != nil {
			return err
		}
	}

	if report {
		if err := writeReport(cmd.ErrOrStderr(), res); err != nil {
			return err
		}
	}

	var out io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return writeJSON(out, res.Collections, indent)
}

func publishResult(cmd *cobra.Command, source string, res *engine.Result) error {
	w := container.Cache()
	if w == nil {
		return errNoRedis
	}
	if err := w.WriteMatches(cmd.Context(), res.Matches()); err != nil {
		return fmt.Errorf("failed to publish matches: %w", err)
	}
	if err := w.PublishRecovery(cmd.Context(), source, res.Stats.Matches, res.Stats.Players); err != nil {
		return fmt.Errorf("failed to publish recovery: %w", err)
	}
	logger.Info("published recovery", zap.String("source", source), zap.Int("matches", res.Stats.Matches))
	return nil
}
