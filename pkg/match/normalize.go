package match

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/timestamp"
)

// ErrNoMatchArray is returned when JSON input lacks an flmatch array.
var ErrNoMatchArray = errors.New("JSON input has no flmatch array")

type jsonExport struct {
	FlMatch *[]jsonMatch `json:"flmatch"`
}

type jsonMatch struct {
	MatchStartTime any              `json:"MatchStartTime"`
	DutyID         any              `json:"DutyId"`
	Players        []map[string]any `json:"Players"`
}

// NormalizeJSON converts a pre-exported {"flmatch": [...]} document into
// match records. Each player's "key" is split into name and server, team
// codes are localized and missing counters default to zero.
func NormalizeJSON(data []byte) ([]MatchRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var export jsonExport
	if err := dec.Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to parse JSON export: %w", err)
	}
	if export.FlMatch == nil {
		return nil, ErrNoMatchArray
	}

	matches := make([]MatchRecord, 0, len(*export.FlMatch))
	for _, m := range *export.FlMatch {
		rec := MatchRecord{
			StartTime: timestamp.Parse(m.MatchStartTime),
			Source:    SourceJSON,
			Offset:    -1,
			Players:   make([]PlayerRecord, 0, len(m.Players)),
		}
		rec.DutyID, _ = asInt64(m.DutyID)
		for _, p := range m.Players {
			rec.Players = append(rec.Players, NormalizePlayer(p))
		}
		matches = append(matches, rec)
	}
	return matches, nil
}

// NormalizePlayer converts one exported player entry.
func NormalizePlayer(p map[string]any) PlayerRecord {
	key, _ := p["key"].(string)
	name, server := SplitKey(key)

	rec := PlayerRecord{
		Name:    name,
		Server:  server,
		Kills:   counter(p["kills"]),
		Deaths:  counter(p["deaths"]),
		Assists: counter(p["assists"]),
		Damage:  counter(p["damage"]),
		Team:    NormalizeTeam(p["team"], p["alliance"]),
	}
	if job := p["job"]; job != nil {
		rec.Job = fmt.Sprint(job)
	}
	return rec
}

// SplitKey splits a "<name> <server>" key on whitespace. The last token is
// the server and the preceding tokens, joined by single spaces, are the
// name. A single token is used for both; an empty key yields "Unknown".
func SplitKey(key string) (name, server string) {
	parts := strings.Fields(key)
	switch len(parts) {
	case 0:
		return "Unknown", "Unknown"
	case 1:
		return parts[0], parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func counter(v any) int64 {
	n, _ := asInt64(v)
	return clampNonNegative(n)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return asInt64(f)
	case codec.Value:
		return n.Int64()
	default:
		return 0, false
	}
}
