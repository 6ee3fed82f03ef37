// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/pvpobserver/pkg/engine"
	"github.com/ssargent/pvpobserver/pkg/loader"
	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/stats"
	"github.com/ssargent/pvpobserver/pkg/storage"
)

// Recoverer turns an acquired input into match records.
type Recoverer interface {
	Process(in *loader.Input) (*engine.Result, error)
}

// MatchStore defines the archive operations the API uses
type MatchStore interface {
	Put(matches []match.MatchRecord) (storage.PutResult, error)
	Get(id ksuid.KSUID) (match.MatchRecord, error)
	List(limit int) ([]storage.StoredMatch, error)
	Matches() ([]match.MatchRecord, error)
	Delete(id ksuid.KSUID) error
	Count() (int, error)
}

// ResultCache publishes recovery results for other consumers.
type ResultCache interface {
	WriteLeaderboard(ctx context.Context, players []*stats.PlayerStats) error
	WriteSummary(ctx context.Context, summary stats.Summary) error
	WriteMatches(ctx context.Context, matches []match.MatchRecord) error
	PublishRecovery(ctx context.Context, source string, matches, players int) error
	ReadLeaderboard(ctx context.Context, limit int64) ([]*stats.PlayerStats, error)
	Ping(ctx context.Context) error
}

// Backends bundles what a server needs. Archive and Cache may be nil.
type Backends struct {
	Recoverer Recoverer
	Loader    *loader.Loader
	Archive   MatchStore
	Cache     ResultCache
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled
	StartServer(ctx context.Context, backends Backends, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
