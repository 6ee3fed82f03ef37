package stats

import (
	"time"

	mstats "github.com/montanaflynn/stats"

	"github.com/ssargent/pvpobserver/pkg/match"
)

// Summary describes the distribution the tiers were computed over.
type Summary struct {
	Players      int            `json:"players"`
	Matches      int            `json:"matches"`
	FirstMatch   time.Time      `json:"first_match,omitempty"`
	LastMatch    time.Time      `json:"last_match,omitempty"`
	MedianKDA    float64        `json:"median_kda"`
	MeanKDA      float64        `json:"mean_kda"`
	P90KDA       float64        `json:"p90_kda"`
	MedianDamage float64        `json:"median_damage"`
	MeanDamage   float64        `json:"mean_damage"`
	P90Damage    float64        `json:"p90_damage"`
	Tiers        map[string]int `json:"tiers"`
}

// Summarize computes distribution figures over aggregated players.
func Summarize(players []*PlayerStats, matches []match.MatchRecord) Summary {
	recent := Recent(matches, RecentMatches)
	s := Summary{
		Players: len(players),
		Matches: len(recent),
		Tiers:   make(map[string]int),
	}
	if len(recent) > 0 {
		s.LastMatch = recent[0].StartTime
		s.FirstMatch = recent[len(recent)-1].StartTime
	}
	if len(players) == 0 {
		return s
	}

	kdas := make(mstats.Float64Data, 0, len(players))
	damages := make(mstats.Float64Data, 0, len(players))
	for _, p := range players {
		kdas = append(kdas, p.KDA)
		damages = append(damages, p.AvgDamage)
		if p.Tier != "" {
			s.Tiers[p.Tier]++
		}
	}

	// Errors only occur on empty input, ruled out above.
	s.MedianKDA, _ = kdas.Median()
	s.MeanKDA, _ = kdas.Mean()
	s.P90KDA, _ = kdas.Percentile(90)
	s.MedianDamage, _ = damages.Median()
	s.MeanDamage, _ = damages.Mean()
	s.P90Damage, _ = damages.Percentile(90)
	return s
}
