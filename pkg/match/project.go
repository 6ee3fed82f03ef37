package match

import (
	"strconv"
	"strings"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/timestamp"
)

// MaxPlayersPerMatch caps the players taken from one match.
const MaxPlayersPerMatch = 72

var knownFields = map[string]bool{
	codec.FieldMatchStartTime:    true,
	codec.FieldDutyID:            true,
	codec.FieldPlayerScoreboards: true,
	codec.FieldPlayers:           true,
}

// FromDocument projects a validated flmatch document onto a MatchRecord.
// Unknown top-level fields are kept in Extra. Fields decoded after an
// unrecognized tag are dropped and the record is marked Partial.
func FromDocument(doc *codec.Document) MatchRecord {
	rec := MatchRecord{
		StartTime: timestamp.Epoch,
		Source:    SourceDocument,
		Offset:    doc.Offset,
		Partial:   doc.Desynced(),
	}

	if v, ok := reliable(doc, codec.FieldMatchStartTime); ok {
		rec.StartTime = timestamp.Parse(v)
	}
	if v, ok := reliable(doc, codec.FieldDutyID); ok {
		rec.DutyID, _ = v.Int64()
	}
	if v, ok := reliable(doc, codec.FieldPlayerScoreboards); ok {
		rec.Players = scoreboardPlayers(v)
	}
	if v, ok := reliable(doc, codec.FieldPlayers); ok {
		rec.Players = mergeRoster(rec.Players, v)
	}

	for _, name := range doc.Keys() {
		if knownFields[name] || !doc.Reliable(name) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		v, _ := doc.Get(name)
		rec.Extra[name] = v.Interface()
	}
	return rec
}

func reliable(doc *codec.Document, name string) (codec.Value, bool) {
	if !doc.Reliable(name) {
		return codec.Value{}, false
	}
	return doc.Get(name)
}

// scoreboardPlayers reads PlayerScoreboards, which is either a single
// scoreboard, a document of scoreboards keyed by "<name> <server>", or an
// array of scoreboards.
func scoreboardPlayers(v codec.Value) []PlayerRecord {
	if v.Doc == nil {
		return nil
	}
	if hasStats(v.Doc) {
		return []PlayerRecord{playerFromDoc(v.Doc)}
	}

	var players []PlayerRecord
	for _, key := range v.Doc.Keys() {
		if len(players) >= MaxPlayersPerMatch {
			break
		}
		entry, _ := v.Doc.Get(key)
		if entry.Doc == nil {
			continue
		}
		p := playerFromDoc(entry.Doc)
		if p.Name == "" && v.Type == codec.TypeEmbeddedDocument {
			p.Name, p.Server = SplitKey(key)
		}
		players = append(players, p)
	}
	return players
}

// mergeRoster fills job and team from the Players roster. When no
// scoreboard was found the roster entries become the players.
func mergeRoster(players []PlayerRecord, roster codec.Value) []PlayerRecord {
	entries := roster.Elements()
	if len(players) == 0 {
		for _, e := range entries {
			if e.Doc == nil || len(players) >= MaxPlayersPerMatch {
				continue
			}
			players = append(players, playerFromDoc(e.Doc))
		}
		return players
	}

	byKey := make(map[string]int, len(players))
	for i, p := range players {
		byKey[p.Key()] = i
		if _, taken := byKey[p.Name]; !taken {
			byKey[p.Name] = i
		}
	}
	for _, e := range entries {
		if e.Doc == nil {
			continue
		}
		r := playerFromDoc(e.Doc)
		i, ok := byKey[r.Key()]
		if !ok {
			i, ok = byKey[r.Name]
		}
		if !ok {
			continue
		}
		if players[i].Job == "" {
			players[i].Job = r.Job
		}
		if players[i].Team == "" {
			players[i].Team = r.Team
		}
	}
	return players
}

func hasStats(d *codec.Document) bool {
	for _, name := range []string{codec.FieldKills, codec.FieldDeaths, codec.FieldAssists, "kills", "deaths", "assists"} {
		if _, ok := d.Get(name); ok {
			return true
		}
	}
	return false
}

func playerFromDoc(d *codec.Document) PlayerRecord {
	p := PlayerRecord{
		Name:    str(d, "Name", "name", "PlayerName"),
		Server:  str(d, "HomeWorld", "World", "Server", "server"),
		Kills:   clampNonNegative(num(d, codec.FieldKills, "kills")),
		Deaths:  clampNonNegative(num(d, codec.FieldDeaths, "deaths")),
		Assists: clampNonNegative(num(d, codec.FieldAssists, "assists")),
		Damage:  clampNonNegative(num(d, codec.FieldDamageDealt, "Damage", "damage")),
		Job:     str(d, "Job", "job"),
		Team:    NormalizeTeam(raw(d, "Team", "team"), raw(d, "Alliance", "alliance")),
	}
	if p.Name == "" {
		if key := str(d, "key", "Key"); key != "" {
			p.Name, p.Server = SplitKey(key)
		}
	} else if p.Server == "" && strings.Contains(p.Name, " ") {
		p.Name, p.Server = SplitKey(p.Name)
	}
	return p
}

func lookup(d *codec.Document, names ...string) (codec.Value, bool) {
	for _, n := range names {
		if v, ok := d.Get(n); ok && !v.IsNull() {
			return v, true
		}
	}
	return codec.Value{}, false
}

func str(d *codec.Document, names ...string) string {
	v, ok := lookup(d, names...)
	if !ok {
		return ""
	}
	if v.Type == codec.TypeString {
		return v.Str
	}
	if n, ok := v.Int64(); ok {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

func num(d *codec.Document, names ...string) int64 {
	v, ok := lookup(d, names...)
	if !ok {
		return 0
	}
	n, _ := v.Int64()
	return n
}

func raw(d *codec.Document, names ...string) any {
	v, ok := lookup(d, names...)
	if !ok {
		return nil
	}
	if n, ok := v.Int64(); ok {
		return n
	}
	return v.Interface()
}
