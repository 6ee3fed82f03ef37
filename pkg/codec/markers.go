package codec

// Field names used to recognize flmatch documents and their scoreboards.
const (
	FieldPlayerScoreboards = "PlayerScoreboards"
	FieldMatchStartTime    = "MatchStartTime"
	FieldDutyID            = "DutyId"
	FieldPlayers           = "Players"
	FieldKills             = "Kills"
	FieldDeaths            = "Deaths"
	FieldAssists           = "Assists"
	FieldDamageDealt       = "DamageDealt"
)

// CollectionFlMatch is the only collection the engine knows how to recover.
const CollectionFlMatch = "flmatch"

// MatchMarkers are the top-level fields whose presence makes a decoded
// document acceptable as a match.
var MatchMarkers = []string{
	FieldPlayerScoreboards,
	FieldMatchStartTime,
	FieldDutyID,
	FieldPlayers,
}

// SearchMarkers are the field names scanned for in raw bytes. Players is left
// out because it is a prefix of PlayerScoreboards.
var SearchMarkers = []string{
	FieldPlayerScoreboards,
	FieldMatchStartTime,
	FieldDutyID,
}

// Patterns converts field names to the byte patterns used by the scanner.
func Patterns(names []string) [][]byte {
	out := make([][]byte, len(names))
	for i, n := range names {
		out[i] = []byte(n)
	}
	return out
}

// IsValidMatchDocument reports whether any top-level field of doc is one of
// MatchMarkers. Markers decoded after an unrecognized tag do not count.
func IsValidMatchDocument(doc *Document) bool {
	if doc == nil || doc.Fields == nil {
		return false
	}
	for _, name := range MatchMarkers {
		if doc.Reliable(name) {
			return true
		}
	}
	return false
}
