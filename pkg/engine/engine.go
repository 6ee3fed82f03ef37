// Package engine turns a raw store image or a JSON export into match
// records.
//
// The binary path runs in three stages. The header is checked and a
// mismatch is only logged. Whole documents are then recovered by marker
// scanning and projected onto match records; a document that projects no
// players has its own bytes re-scanned field by field. When that yields
// nothing, matches are rebuilt from MatchStartTime occurrences alone.
//
// Parse never fails. Corruption shows up as fewer records and in Stats.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/loader"
	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/recovery"
)

// Stats summarizes how records were recovered.
type Stats struct {
	Extract            recovery.ExtractStats `json:"extract"`
	Documents          int                   `json:"documents"`
	DocumentFallbacks  int                   `json:"document_fallbacks"`
	BinaryFallback     bool                  `json:"binary_fallback"`
	StandaloneDocument bool                  `json:"standalone_document,omitempty"`
	Matches            int                   `json:"matches"`
	Players            int                   `json:"players"`

	// UnknownServers counts players whose server is not in the server
	// dictionary, usually a sign of misread names.
	UnknownServers int `json:"unknown_servers"`
}

func (s *Stats) count(matches []match.MatchRecord) {
	s.Matches = len(matches)
	s.Players = 0
	s.UnknownServers = 0
	for _, m := range matches {
		s.Players += len(m.Players)
		for _, p := range m.Players {
			if !recovery.IsKnownServer(p.Server) {
				s.UnknownServers++
			}
		}
	}
}

// Result is the output of one engine run.
type Result struct {
	Header      Header            `json:"header"`
	Collections match.Collections `json:"collections"`
	Stats       Stats             `json:"stats"`
}

// Matches returns the recovered flmatch records.
func (r *Result) Matches() []match.MatchRecord {
	if r == nil {
		return nil
	}
	return r.Collections[codec.CollectionFlMatch]
}

// Config configures an Engine.
type Config struct {
	MaxDocuments int
	Logger       *zap.Logger
	Loader       *loader.Loader
}

// Engine recovers match records. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	extractor *recovery.Extractor
	codec     *codec.DocumentCodec
	loader    *loader.Loader
	logger    *zap.Logger
}

// New creates an engine.
func New(config Config) *Engine {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Loader == nil {
		config.Loader = loader.New(loader.Config{Logger: config.Logger})
	}
	return &Engine{
		extractor: recovery.NewExtractor(recovery.ExtractorConfig{
			MaxDocuments: config.MaxDocuments,
			Logger:       config.Logger.Named("extractor"),
		}),
		codec:  codec.NewDocumentCodec(),
		loader: config.Loader,
		logger: config.Logger,
	}
}

// Parse recovers the flmatch collection from a raw store image. buf is
// never modified.
func (e *Engine) Parse(buf []byte) *Result {
	res := &Result{
		Header:      ReadHeader(buf),
		Collections: match.Collections{},
	}
	if !res.Header.Recognized {
		e.logger.Warn("unexpected file header, scanning anyway",
			zap.String("signature", res.Header.Signature),
			zap.Int("size", res.Header.Size))
	}

	docs := e.documents(buf, res)
	matches := make([]match.MatchRecord, 0, len(docs))
	for _, doc := range docs {
		rec := match.FromDocument(doc)
		if len(rec.Players) == 0 {
			if players := recovery.ExtractPlayers(buf, doc.Offset, doc.End()); len(players) > 0 {
				rec.Players = players
				rec.Source = match.SourceFallback
				res.Stats.DocumentFallbacks++
			}
		}
		matches = append(matches, rec)
	}

	if len(matches) == 0 {
		matches = recovery.ExtractMatches(buf)
		if matches == nil {
			matches = []match.MatchRecord{}
		}
		res.Stats.BinaryFallback = true
		e.logger.Info("no documents recovered, rebuilt matches from field names",
			zap.Int("matches", len(matches)))
	}

	res.Collections[codec.CollectionFlMatch] = matches
	res.Stats.count(matches)

	e.logger.Info("recovery finished",
		zap.Int("documents", res.Stats.Documents),
		zap.Int("matches", res.Stats.Matches),
		zap.Int("players", res.Stats.Players),
		zap.Int("unknown_servers", res.Stats.UnknownServers),
		zap.Bool("binary_fallback", res.Stats.BinaryFallback))
	return res
}

// documents returns the match documents in buf. A buffer that is exactly
// one match document, such as a single exported record, is taken as is;
// otherwise documents are found by marker scanning.
func (e *Engine) documents(buf []byte, res *Result) []*codec.Document {
	if doc, err := e.codec.Decode(buf, 0); err == nil && doc.Length == len(buf) && codec.IsValidMatchDocument(doc) {
		res.Stats.StandaloneDocument = true
		res.Stats.Documents = 1
		return []*codec.Document{doc}
	}

	docs, stats := e.extractor.Extract(buf, codec.SearchMarkers, 0)
	res.Stats.Extract = stats
	res.Stats.Documents = len(docs)
	return docs
}

// ParseJSON runs the alternate input path over a {"flmatch": [...]} export.
func (e *Engine) ParseJSON(data []byte) (*Result, error) {
	matches, err := match.NormalizeJSON(loader.StripBOM(data))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Collections: match.Collections{codec.CollectionFlMatch: matches},
	}
	res.Stats.count(matches)
	e.logger.Info("JSON export normalized", zap.Int("matches", len(matches)))
	return res, nil
}

// Process dispatches an acquired input to the JSON or binary path.
func (e *Engine) Process(in *loader.Input) (*Result, error) {
	if in.Kind == loader.KindJSON {
		return e.ParseJSON(in.Data)
	}
	return e.Parse(in.Data), nil
}

// Load acquires src (a path, "-" or a URL) and recovers its matches.
func (e *Engine) Load(ctx context.Context, src string) (*Result, error) {
	in, err := e.loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src, err)
	}
	return e.Process(in)
}
