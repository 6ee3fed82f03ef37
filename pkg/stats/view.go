package stats

import (
	"github.com/ssargent/pvpobserver/pkg/match"
)

// MatchPlayer is one player's line in a single match, next to their
// overall figures.
type MatchPlayer struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Server  string  `json:"server"`
	Team    string  `json:"team,omitempty"`
	Job     string  `json:"job"`
	Kills   int64   `json:"kills"`
	Deaths  int64   `json:"deaths"`
	Assists int64   `json:"assists"`
	Damage  int64   `json:"damage"`
	KDA     float64 `json:"kda"`

	Tier          string  `json:"tier,omitempty"`
	TierScore     float64 `json:"tier_score"`
	Matches       int     `json:"matches"`
	OverallKDA    float64 `json:"overall_kda"`
	AvgDamage     float64 `json:"avg_damage"`
	MostPlayedJob string  `json:"most_played_job"`
}

// MatchView lists the players of m with their overall statistics.
func MatchView(m match.MatchRecord, players []*PlayerStats) []MatchPlayer {
	byKey := make(map[string]*PlayerStats, len(players))
	for _, p := range players {
		byKey[p.Key] = p
	}

	out := make([]MatchPlayer, 0, len(m.Players))
	for _, p := range m.Players {
		mp := MatchPlayer{
			Key:           p.Key(),
			Name:          p.Name,
			Server:        serverOrUnknown(p.Server),
			Team:          p.Team,
			Job:           p.Job,
			Kills:         p.Kills,
			Deaths:        p.Deaths,
			Assists:       p.Assists,
			Damage:        p.Damage,
			KDA:           KDA(p.Kills, p.Deaths, p.Assists),
			MostPlayedJob: match.UnknownJob,
		}
		if mp.Job == "" {
			mp.Job = match.UnknownJob
		}
		if s, ok := byKey[mp.Key]; ok {
			mp.Tier = s.Tier
			mp.TierScore = s.TierScore
			mp.Matches = s.Matches
			mp.OverallKDA = s.KDA
			mp.AvgDamage = s.AvgDamage
			mp.MostPlayedJob = s.MostPlayedJob
		}
		out = append(out, mp)
	}
	return out
}
