// Package stats aggregates recovered matches into per-player statistics and
// ranks players into tiers.
package stats

import (
	"cmp"
	"slices"

	"github.com/ssargent/pvpobserver/pkg/match"
	"github.com/ssargent/pvpobserver/pkg/timestamp"
)

// RecentMatches is how many of the newest matches feed the statistics.
const RecentMatches = 200

// PlayerStats is one player's totals over the recent matches.
type PlayerStats struct {
	Key           string         `json:"key"`
	Name          string         `json:"name"`
	Server        string         `json:"server"`
	Matches       int            `json:"matches"`
	Kills         int64          `json:"kills"`
	Deaths        int64          `json:"deaths"`
	Assists       int64          `json:"assists"`
	Damage        int64          `json:"damage"`
	KDA           float64        `json:"kda"`
	AvgDamage     float64        `json:"avg_damage"`
	MostPlayedJob string         `json:"most_played_job"`
	JobCounts     map[string]int `json:"job_counts,omitempty"`

	Tier      string  `json:"tier,omitempty"`
	TierScore float64 `json:"tier_score"`
	TierRank  int     `json:"tier_rank,omitempty"`
}

// KDA is (kills+assists)/deaths, or kills+assists without deaths.
func KDA(kills, deaths, assists int64) float64 {
	if deaths > 0 {
		return float64(kills+assists) / float64(deaths)
	}
	return float64(kills + assists)
}

// Recent returns up to n matches with a known start time, newest first.
func Recent(matches []match.MatchRecord, n int) []match.MatchRecord {
	out := make([]match.MatchRecord, 0, len(matches))
	for _, m := range matches {
		if m.StartTime.IsZero() || timestamp.IsEpoch(m.StartTime) {
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b match.MatchRecord) int {
		return b.StartTime.Compare(a.StartTime)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Aggregate totals each player over the RecentMatches newest matches, ranks
// them into tiers and returns them sorted by tier, then by match count.
func Aggregate(matches []match.MatchRecord) []*PlayerStats {
	byKey := make(map[string]*PlayerStats)
	var players []*PlayerStats

	for _, m := range Recent(matches, RecentMatches) {
		for _, p := range m.Players {
			if p.Name == "" {
				continue
			}
			key := p.Key()
			s, ok := byKey[key]
			if !ok {
				s = &PlayerStats{
					Key:       key,
					Name:      p.Name,
					Server:    serverOrUnknown(p.Server),
					JobCounts: make(map[string]int),
				}
				byKey[key] = s
				players = append(players, s)
			}
			s.Matches++
			s.Kills += p.Kills
			s.Deaths += p.Deaths
			s.Assists += p.Assists
			s.Damage += p.Damage
			if p.Job != "" {
				s.JobCounts[p.Job]++
			}
		}
	}

	for _, s := range players {
		s.KDA = KDA(s.Kills, s.Deaths, s.Assists)
		if s.Matches > 0 {
			s.AvgDamage = float64(s.Damage) / float64(s.Matches)
		}
		s.MostPlayedJob = mostPlayed(s.JobCounts)
	}

	NewTierCalculator().Assign(players)

	slices.SortStableFunc(players, func(a, b *PlayerStats) int {
		if c := cmp.Compare(tierOrder(a.Tier), tierOrder(b.Tier)); c != 0 {
			return c
		}
		return cmp.Compare(b.Matches, a.Matches)
	})
	return players
}

// mostPlayed returns the job with the highest count. Ties go to the job
// that sorts first so the result does not depend on map order.
func mostPlayed(counts map[string]int) string {
	best, bestN := match.UnknownJob, 0
	for job, n := range counts {
		if n > bestN || (n == bestN && job < best) {
			best, bestN = job, n
		}
	}
	return best
}

func serverOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
