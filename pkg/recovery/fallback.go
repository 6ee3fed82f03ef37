package recovery

import (
	"encoding/binary"
	"strings"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/scan"
)

// Field-level recovery limits.
const (
	MaxRegionSpan   = 50000
	BucketSize      = 100
	CompanionWindow = 100
	DamageWindow    = 150
	NameLookback    = 200

	duplicateStep = 10
	recordStep    = 50
)

var (
	killsPattern   = []byte(codec.FieldKills)
	deathsPattern  = []byte(codec.FieldDeaths)
	assistsPattern = []byte(codec.FieldAssists)
	damagePattern  = []byte(codec.FieldDamageDealt)
)

// ExtractPlayers rebuilds player scoreboards between start and end from
// field names alone. The region is clamped to MaxRegionSpan bytes and at
// most match.MaxPlayersPerMatch records are returned, in increasing order
// of their Kills offset.
//
// A Kills hit needs Deaths and Assists within CompanionWindow bytes after
// it. Only one hit per BucketSize-byte bucket is considered. Values are
// read two bytes past the end of each field name. The player's name and
// server come from the NameLookback bytes before Kills; hits without a
// recognizable "<name> <server>" are dropped.
func ExtractPlayers(buf []byte, start, end int) []match.PlayerRecord {
	if start < 0 {
		start = 0
	}
	if end > len(buf) {
		end = len(buf)
	}
	if end > start+MaxRegionSpan {
		end = start + MaxRegionSpan
	}

	var players []match.PlayerRecord
	seen := make(map[int]struct{})

	pos := start
	for pos < end && len(players) < match.MaxPlayersPerMatch {
		kills := scan.Find(buf, killsPattern, pos, end)
		if kills == scan.NotFound {
			break
		}

		bucket := kills / BucketSize * BucketSize
		if _, dup := seen[bucket]; dup {
			pos = kills + duplicateStep
			continue
		}
		seen[bucket] = struct{}{}
		pos = kills + recordStep

		deaths := scan.Find(buf, deathsPattern, kills, kills+CompanionWindow)
		assists := scan.Find(buf, assistsPattern, kills, kills+CompanionWindow)
		if deaths == scan.NotFound || assists == scan.NotFound {
			continue
		}

		p := match.PlayerRecord{
			Kills:   int64(int32At(buf, kills, len(killsPattern))),
			Deaths:  int64(int32At(buf, deaths, len(deathsPattern))),
			Assists: int64(int32At(buf, assists, len(assistsPattern))),
			Offset:  kills,
		}
		if damage := scan.Find(buf, damagePattern, kills, kills+DamageWindow); damage != scan.NotFound {
			p.Damage = int64At(buf, damage, len(damagePattern))
		}

		name, server, ok := nameNear(buf, kills)
		if !ok || p.Kills < 0 || p.Deaths < 0 {
			continue
		}
		p.Name, p.Server = name, server
		if p.Assists < 0 {
			p.Assists = 0
		}
		if p.Damage < 0 {
			p.Damage = 0
		}
		players = append(players, p)
	}
	return players
}

// nameNear decodes the bytes before a field as text and matches it against
// the server dictionary.
func nameNear(buf []byte, field int) (string, string, bool) {
	from := field - NameLookback
	if from < 0 {
		from = 0
	}
	text := strings.ToValidUTF8(string(buf[from:field]), "�")
	return MatchServerName(text)
}

// int32At reads the Int32 value of the field whose name of nameLen bytes
// starts at field. Out-of-range reads yield 0.
func int32At(buf []byte, field, nameLen int) int32 {
	pos := field + nameLen + 2
	if pos < 0 || pos+4 > len(buf) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(buf[pos:]))
}

func int64At(buf []byte, field, nameLen int) int64 {
	pos := field + nameLen + 2
	if pos < 0 || pos+8 > len(buf) {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(buf[pos:]))
}
