package stats

import (
	"cmp"
	"math"
	"slices"
	"sort"
)

// Tier names, best first.
const (
	TierT0 = "T0"
	TierT1 = "T1"
	TierT2 = "T2"
	TierT3 = "T3"
	TierT4 = "T4"
	TierT5 = "T5"
)

type tierCutoff struct {
	name  string
	score float64
}

var tierCutoffs = []tierCutoff{
	{TierT0, 95},
	{TierT1, 90},
	{TierT2, 75},
	{TierT3, 50},
	{TierT4, 25},
}

// TierCalculator scores players from the percentile ranks of their KDA and
// average damage.
type TierCalculator struct {
	KDAWeight     float64
	DamageWeight  float64
	MinMatches    int
	TargetMatches int
	AverageScore  float64
}

// NewTierCalculator returns the default weighting: KDA and damage count
// equally and scores are pulled toward 50 until a player has 3 matches.
func NewTierCalculator() *TierCalculator {
	return &TierCalculator{
		KDAWeight:     0.5,
		DamageWeight:  0.5,
		MinMatches:    1,
		TargetMatches: 3,
		AverageScore:  50,
	}
}

// Assign sets Tier, TierScore and TierRank on every player with at least
// MinMatches matches and clears them on the rest.
func (c *TierCalculator) Assign(players []*PlayerStats) {
	var qualified []*PlayerStats
	for _, p := range players {
		if p.Matches >= c.MinMatches {
			qualified = append(qualified, p)
			continue
		}
		p.Tier, p.TierScore, p.TierRank = "", 0, 0
	}
	if len(qualified) == 0 {
		return
	}

	kdas := make([]float64, len(qualified))
	damages := make([]float64, len(qualified))
	for i, p := range qualified {
		kdas[i] = p.KDA
		damages[i] = p.AvgDamage
	}
	sort.Float64s(kdas)
	sort.Float64s(damages)

	for _, p := range qualified {
		raw := (PercentileRank(p.KDA, kdas)*c.KDAWeight + PercentileRank(p.AvgDamage, damages)*c.DamageWeight) * 100
		confidence := math.Min(float64(p.Matches)/float64(c.TargetMatches), 1)
		p.TierScore = raw*confidence + c.AverageScore*(1-confidence)
		p.Tier = TierFor(p.TierScore)
	}

	ranked := slices.Clone(qualified)
	slices.SortStableFunc(ranked, func(a, b *PlayerStats) int {
		return cmp.Compare(b.TierScore, a.TierScore)
	})
	for i, p := range ranked {
		p.TierRank = i + 1
	}
}

// PercentileRank is the fraction of sorted values that are <= v. An empty
// distribution ranks everything at 0.5.
func PercentileRank(v float64, sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0.5
	}
	n := sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
	return float64(n) / float64(len(sorted))
}

// TierFor maps a 0-100 score to a tier name.
func TierFor(score float64) string {
	for _, t := range tierCutoffs {
		if score >= t.score {
			return t.name
		}
	}
	return TierT5
}

func tierOrder(tier string) int {
	for i, t := range tierCutoffs {
		if t.name == tier {
			return i
		}
	}
	if tier == TierT5 {
		return len(tierCutoffs)
	}
	return 99
}
