/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/engine"
	"github.com/ssargent/pvpobserver/pkg/loader"
	"github.com/ssargent/pvpobserver/pkg/recovery"
)

const synthPageSize = 8192

var (
	synthNames = []string{"Alisaie", "Alphinaud", "Estinien", "Thancred", "Urianger", "Yshtola", "Krile", "Tataru", "Lyse", "Haurchefant", "Ysayle", "Aymeric"}
	synthJobs  = []string{"PLD", "WAR", "DRK", "GNB", "WHM", "SCH", "AST", "SGE", "MNK", "DRG", "NIN", "SAM", "RPR", "VPR", "BRD", "MCH", "DNC", "BLM", "SMN", "RDM", "PCT"}
)

type synthOptions struct {
	Matches  int
	Players  int
	Seed     uint64
	Start    time.Time
	Corrupt  int
	Compress loader.Compression
}

func newSynthCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "synth <output>",
		Short: "Write a synthetic match store",
		Long: `Write a LiteDB-style store filled with random flmatch documents, for
trying the recovery pipeline without a real client database.

--corrupt zeroes the length prefix of that many documents so recovery has
to find their boundaries by scanning.

Examples:
  pvpobs synth test.db --matches 50
  pvpobs synth test.db.zst --compress zstd --corrupt 5`,
		Args: cobra.ExactArgs(1),
		RunE: runSynth,
	}

	c.Flags().Int("matches", 20, "Number of matches")
	c.Flags().Int("players", 10, "Players per match")
	c.Flags().Uint64("seed", 1, "Random seed")
	c.Flags().Int("corrupt", 0, "Number of documents whose length prefix is destroyed")
	c.Flags().String("compress", string(loader.CompressionNone), "Container: none, gzip, zstd, lz4, snappy or s2")
	return c
}

func runSynth(cmd *cobra.Command, args []string) error {
	opts := synthOptions{Start: time.Date(2025, 12, 7, 6, 0, 0, 0, time.UTC)}
	opts.Matches, _ = cmd.Flags().GetInt("matches")
	opts.Players, _ = cmd.Flags().GetInt("players")
	opts.Seed, _ = cmd.Flags().GetUint64("seed")
	opts.Corrupt, _ = cmd.Flags().GetInt("corrupt")
	compress, _ := cmd.Flags().GetString("compress")
	opts.Compress = loader.Compression(compress)

	store, err := buildSyntheticStore(opts)
	if err != nil {
		return err
	}
	data, err := compressStore(store, opts.Compress)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	cmd.Printf("Wrote %d matches (%d bytes, %s) to %s\n", opts.Matches, len(data), opts.Compress, args[0])
	return nil
}

// buildSyntheticStore lays out a header page followed by match documents
// separated by random padding.
func buildSyntheticStore(opts synthOptions) ([]byte, error) {
	if opts.Matches < 0 || opts.Players < 1 || opts.Players > 72 {
		return nil, fmt.Errorf("invalid synth options: %d matches, %d players", opts.Matches, opts.Players)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9E3779B97F4A7C15))

	buf := engine.NewHeaderPage(synthPageSize, 8)
	var offsets []int
	for i := 0; i < opts.Matches; i++ {
		buf = append(buf, make([]byte, 16+rng.IntN(200))...)
		offsets = append(offsets, len(buf))
		start := opts.Start.Add(time.Duration(i) * 17 * time.Minute)
		buf = append(buf, synthMatch(rng, int64(i+1), start, opts.Players)...)
	}
	buf = append(buf, make([]byte, synthPageSize)...)

	for _, i := range rng.Perm(len(offsets))[:min(opts.Corrupt, len(offsets))] {
		copy(buf[offsets[i]:], []byte{0, 0, 0, 0})
	}
	return buf, nil
}

func synthMatch(rng *rand.Rand, id int64, start time.Time, players int) []byte {
	boards := make([]byte, 0, players*96)
	roster := make([]byte, 0, players*96)
	used := make(map[string]bool)

	for p := 0; p < players; p++ {
		name, server := synthPlayer(rng, used)
		board := bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendInt32Element(nil, codec.FieldKills, int32(rng.IntN(15))),
			bsoncore.AppendInt32Element(nil, codec.FieldDeaths, int32(rng.IntN(10))),
			bsoncore.AppendInt32Element(nil, codec.FieldAssists, int32(rng.IntN(30))),
			bsoncore.AppendInt64Element(nil, codec.FieldDamageDealt, int64(200000+rng.IntN(1800000))),
		)
		boards = bsoncore.AppendDocumentElement(boards, name+" "+server, board)

		entry := bsoncore.BuildDocumentFromElements(nil,
			bsoncore.AppendStringElement(nil, "Name", name),
			bsoncore.AppendStringElement(nil, "HomeWorld", server),
			bsoncore.AppendStringElement(nil, "Job", synthJobs[rng.IntN(len(synthJobs))]),
			bsoncore.AppendInt32Element(nil, "Team", int32(p%3)),
		)
		roster = bsoncore.AppendDocumentElement(roster, fmt.Sprint(p), entry)
	}

	return bsoncore.BuildDocumentFromElements(nil,
		bsoncore.AppendInt64Element(nil, "_id", id),
		bsoncore.AppendDateTimeElement(nil, codec.FieldMatchStartTime, start.UnixMilli()),
		bsoncore.AppendInt32Element(nil, codec.FieldDutyID, int32(1116+rng.IntN(3))),
		bsoncore.AppendDocumentElement(nil, codec.FieldPlayerScoreboards, bsoncore.BuildDocument(nil, boards)),
		bsoncore.AppendArrayElement(nil, codec.FieldPlayers, bsoncore.BuildDocument(nil, roster)),
	)
}

func synthPlayer(rng *rand.Rand, used map[string]bool) (string, string) {
	for {
		first := synthNames[rng.IntN(len(synthNames))]
		last := synthNames[rng.IntN(len(synthNames))]
		name := first + " " + last
		server := recovery.ServerNames[rng.IntN(len(recovery.ServerNames))]
		if !used[name+"@"+server] {
			used[name+"@"+server] = true
			return name, server
		}
	}
}

func compressStore(data []byte, kind loader.Compression) ([]byte, error) {
	var out bytes.Buffer
	var w io.WriteCloser
	switch kind {
	case "", loader.CompressionNone:
		return data, nil
	case loader.CompressionGzip:
		w = gzip.NewWriter(&out)
	case loader.CompressionZstd:
		enc, err := zstd.NewWriter(&out)
		if err != nil {
			return nil, err
		}
		w = enc
	case loader.CompressionLZ4:
		w = lz4.NewWriter(&out)
	case loader.CompressionSnappy:
		w = s2.NewWriter(&out, s2.WriterSnappyCompat())
	case loader.CompressionS2:
		w = s2.NewWriter(&out)
	default:
		return nil, fmt.Errorf("unknown compression %q", kind)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress store: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress store: %w", err)
	}
	return out.Bytes(), nil
}
