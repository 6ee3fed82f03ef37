// Package match defines the strongly typed match and player records produced
// by the recovery engine and the JSON import path, and the projection from
// decoded documents onto them.
package match

import "time"

// Recovery strategies recorded on each match.
const (
	SourceDocument = "document" // full document decode
	SourceFallback = "fallback" // field-level reconstruction
	SourceJSON     = "json"     // pre-normalized JSON import
)

// UnknownJob is reported when a player's job was never recorded.
const UnknownJob = "未知"

// MatchRecord is one recovered match.
type MatchRecord struct {
	StartTime time.Time      `json:"start_time"`
	DutyID    int64          `json:"duty_id,omitempty"`
	Players   []PlayerRecord `json:"players"`

	// Source is one of the Source* constants.
	Source string `json:"source"`
	// Offset is the byte offset the record was recovered from, -1 for JSON.
	Offset int `json:"offset"`
	// Partial is set when the source document skipped an unrecognized field
	// type, so fields decoded after it may be misaligned.
	Partial bool `json:"partial,omitempty"`
	// Extra keeps top-level fields the projection does not understand.
	Extra map[string]any `json:"extra,omitempty"`
}

// PlayerRecord is one player's scoreboard line. Counters are never negative.
type PlayerRecord struct {
	Name    string `json:"name"`
	Server  string `json:"server"`
	Kills   int64  `json:"kills"`
	Deaths  int64  `json:"deaths"`
	Assists int64  `json:"assists"`
	Damage  int64  `json:"damage"`
	Job     string `json:"job,omitempty"`
	Team    string `json:"team,omitempty"`

	// Offset is the byte offset of the record's Kills field when it was
	// reconstructed by the fallback extractor.
	Offset int `json:"-"`
}

// Key identifies a player across matches.
func (p PlayerRecord) Key() string {
	server := p.Server
	if server == "" {
		server = "Unknown"
	}
	return p.Name + "@" + server
}

// Collections is the engine's primary output keyed by collection name.
type Collections map[string][]MatchRecord

func clampNonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
