/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tidwall/pretty"

	"github.com/ssargent/pvpobserver/pkg/engine"
	"github.com/ssargent/pvpobserver/pkg/stats"
	"github.com/ssargent/pvpobserver/pkg/storage"
	"github.com/ssargent/pvpobserver/pkg/timestamp"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// writeJSON marshals v, indenting it when indent is set.
func writeJSON(w io.Writer, v interface{}, indent bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if indent {
		data = pretty.Pretty(data)
	} else {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}

// writeReport summarizes how a recovery went
func writeReport(w io.Writer, res *engine.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	header := "unrecognized"
	if res.Header.Recognized {
		header = fmt.Sprintf("LiteDB v%d", res.Header.Version)
	}
	fmt.Fprintf(tw, "Header:\t%s (%s)\n", header, res.Header.Signature)
	fmt.Fprintf(tw, "Size:\t%d bytes\n", res.Header.Size)
	fmt.Fprintf(tw, "Markers:\t%d\n", res.Stats.Extract.Markers)
	fmt.Fprintf(tw, "Documents:\t%d\n", res.Stats.Documents)
	if skipped := res.Stats.Extract.Skipped(); skipped > 0 {
		x := res.Stats.Extract
		fmt.Fprintf(tw, "Skipped:\t%d (boundary %d, length %d, overrun %d, invalid %d, overlap %d)\n",
			skipped, x.BoundaryNotFound, x.InvalidLength, x.DecodeOverrun, x.Invalid, x.Overlapping)
	}
	if res.Stats.DocumentFallbacks > 0 {
		fmt.Fprintf(tw, "Field-level fallbacks:\t%d\n", res.Stats.DocumentFallbacks)
	}
	if res.Stats.BinaryFallback {
		fmt.Fprintf(tw, "Binary fallback:\tyes\n")
	}
	fmt.Fprintf(tw, "Matches:\t%d\n", res.Stats.Matches)
	fmt.Fprintf(tw, "Players:\t%d\n", res.Stats.Players)
	if res.Stats.UnknownServers > 0 {
		fmt.Fprintf(tw, "Unknown servers:\t%d\n", res.Stats.UnknownServers)
	}
	return nil
}

// writePlayersTable displays ranked players in table format
func writePlayersTable(w io.Writer, players []*stats.PlayerStats) error {
	if len(players) == 0 {
		fmt.Fprintln(w, "No players found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "RANK\tTIER\tSCORE\tPLAYER\tMATCHES\tK/D/A\tKDA\tAVG DMG\tJOB")
	for _, p := range players {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%d\t%d/%d/%d\t%.2f\t%.0f\t%s\n",
			p.TierRank, p.Tier, p.TierScore, p.Key, p.Matches,
			p.Kills, p.Deaths, p.Assists, p.KDA, p.AvgDamage, p.MostPlayedJob)
	}
	return nil
}

// writeSummary displays the distribution behind the tiers
func writeSummary(w io.Writer, s stats.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Players:\t%d\n", s.Players)
	fmt.Fprintf(tw, "Matches:\t%d\n", s.Matches)
	if !s.FirstMatch.IsZero() {
		fmt.Fprintf(tw, "Period:\t%s - %s\n", s.FirstMatch.Format(time.RFC3339), s.LastMatch.Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "KDA:\tmedian %.2f, mean %.2f, p90 %.2f\n", s.MedianKDA, s.MeanKDA, s.P90KDA)
	fmt.Fprintf(tw, "Damage:\tmedian %.0f, mean %.0f, p90 %.0f\n", s.MedianDamage, s.MeanDamage, s.P90Damage)

	tiers := make([]string, 0, len(s.Tiers))
	for _, t := range []string{stats.TierT0, stats.TierT1, stats.TierT2, stats.TierT3, stats.TierT4, stats.TierT5} {
		if n := s.Tiers[t]; n > 0 {
			tiers = append(tiers, fmt.Sprintf("%s=%d", t, n))
		}
	}
	fmt.Fprintf(tw, "Tiers:\t%s\n", strings.Join(tiers, " "))
	return nil
}

// writeMatchesTable displays archived matches in table format
func writeMatchesTable(w io.Writer, matches []storage.StoredMatch) error {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tSTARTED\tDUTY\tPLAYERS\tSOURCE")
	for _, s := range matches {
		started := "unknown"
		if !s.Match.StartTime.IsZero() && !timestamp.IsEpoch(s.Match.StartTime) {
			started = s.Match.StartTime.Format(time.RFC3339)
		}
		source := s.Match.Source
		if s.Match.Partial {
			source += " (partial)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.ID, started, s.Match.DutyID, len(s.Match.Players), source)
	}
	return nil
}
