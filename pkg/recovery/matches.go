package recovery

import (
	"time"

	"github.com/ssargent/pvpobserver/pkg/codec"
	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/scan"
)

// Binary match recovery limits.
const (
	MaxMatches = 200

	scoreboardBefore = 1000
	scoreboardAfter  = 5000
	matchStep        = 100
)

var (
	startTimePattern  = []byte(codec.FieldMatchStartTime)
	scoreboardPattern = []byte(codec.FieldPlayerScoreboards)
)

// ExtractMatches rebuilds matches from MatchStartTime occurrences when no
// document could be decoded. A PlayerScoreboards name must appear between
// 1000 bytes before and 5000 bytes after the start time; players are then
// recovered with ExtractPlayers from that point. Matches without players
// are dropped. At most MaxMatches are returned.
func ExtractMatches(buf []byte) []match.MatchRecord {
	var matches []match.MatchRecord

	pos := 0
	for pos < len(buf) && len(matches) < MaxMatches {
		t := scan.Find(buf, startTimePattern, pos, len(buf))
		if t == scan.NotFound {
			break
		}
		pos = t + matchStep

		sb := scan.Find(buf, scoreboardPattern, t-scoreboardBefore, t+scoreboardAfter)
		if sb == scan.NotFound {
			continue
		}

		players := ExtractPlayers(buf, sb, sb+MaxRegionSpan)
		if len(players) == 0 {
			continue
		}
		matches = append(matches, match.MatchRecord{
			StartTime: time.UnixMilli(int64At(buf, t, len(startTimePattern))).UTC(),
			Players:   players,
			Source:    match.SourceFallback,
			Offset:    t,
			Partial:   true,
		})
	}
	return matches
}
