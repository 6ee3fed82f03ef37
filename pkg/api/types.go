package api

import (
	"time"

	"github.com/ssargent/pvpobserver/pkg/engine"
	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/stats"
	"github.com/ssargent/pvpobserver/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind           string
	Port           int
	APIKey         string
	AllowedOrigins []string
	MaxUploadBytes int64

	// ShutdownTimeout bounds how long in-flight requests may run after the
	// server context is cancelled.
	ShutdownTimeout time.Duration
}

// RecoverResponse is the result of one upload.
type RecoverResponse struct {
	Source      string               `json:"source"`
	Compression string               `json:"compression"`
	Kind        string               `json:"kind"`
	Header      engine.Header        `json:"header"`
	Stats       engine.Stats         `json:"stats"`
	Collections match.Collections    `json:"collections"`
	Archive     *storage.PutResult   `json:"archive,omitempty"`
	Players     []*stats.PlayerStats `json:"players,omitempty"`
}

// StatsResponse carries ranked players and the distribution behind them.
type StatsResponse struct {
	Players []*stats.PlayerStats `json:"players"`
	Summary stats.Summary        `json:"summary"`
}

// MatchResponse is one archived match with its players' overall figures.
type MatchResponse struct {
	ID      string              `json:"id"`
	Match   match.MatchRecord   `json:"match"`
	Players []stats.MatchPlayer `json:"players"`
}

// HealthResponse reports the state of the server's backends.
type HealthResponse struct {
	Status          string `json:"status"`
	ArchiveEnabled  bool   `json:"archive_enabled"`
	ArchivedMatches int    `json:"archived_matches,omitempty"`
	CacheEnabled    bool   `json:"cache_enabled"`
	CacheError      string `json:"cache_error,omitempty"`
}
