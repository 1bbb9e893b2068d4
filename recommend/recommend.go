package recommend

import (
	"fmt"
	"sort"

	"zentry/engine/library"
	"zentry/scoring"
	"zentry/signals"
)

type Recommendation struct {
	Category        scoring.Dimension   `json:"category"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	PotentialImpact scoring.ImpactLevel `json:"potentialImpact"`
	PotentialGain   float64             `json:"potentialGain"`
}

// Impact thresholds on the potential overall score gain.
const (
	highGain   = 10
	mediumGain = 4
)

type Engine struct {
	limit int
}

// NewEngine returns an Engine that returns at most limit recommendations, or all of them when
// limit is zero.
func NewEngine(limit int) *Engine {
	return &Engine{limit: limit}
}

// Recommend derives improvement actions from an explanation and the address's linked accounts.
// The result is deterministic for the same input.
func (r *Engine) Recommend(address library.Account, e scoring.Explanation, handles signals.Handles) []Recommendation {
	sum := e.Weights.Sum()
	if sum <= 0 {
		return nil
	}
	dimensionOrder := make(map[scoring.Dimension]int)
	for i, d := range scoring.Dimensions {
		dimensionOrder[d] = i
	}

	var out []Recommendation
	for _, d := range scoring.Dimensions {
		dim := e.Dimensions[d]
		if dim.Score >= 100 {
			continue
		}
		share := e.Weights.Of(d) / sum
		for _, f := range dim.Factors {
			if f.Score >= 100 {
				continue
			}
			t, ok := templates[f.Name]
			if !ok {
				continue
			}
			gain := float64(100-f.Score) * f.Weight * share
			out = append(out, Recommendation{
				Category:        d,
				Title:           t.title,
				Description:     t.description,
				PotentialImpact: impactOf(gain),
				PotentialGain:   round2(gain),
			})
		}
	}

	for _, source := range library.SupportedSources {
		if h, ok := handles[source]; ok && h.Verified {
			continue
		}
		sf, ok := scoring.FactorForSource(source)
		if !ok {
			continue
		}
		gain := 100 * scoring.UnverifiedCredit * sf.Weight * e.Weights.Of(sf.Dimension) / sum
		out = append(out, Recommendation{
			Category: sf.Dimension,
			Title:    fmt.Sprintf("Verify your %s account", sourceTitles[source]),
			Description: fmt.Sprintf("Link your %s account and publish the challenge %q to prove ownership. Verified accounts count at full credit.",
				sourceTitles[source], "zentry-verify:"+address),
			PotentialImpact: impactOf(gain),
			PotentialGain:   round2(gain),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PotentialGain != out[j].PotentialGain {
			return out[i].PotentialGain > out[j].PotentialGain
		}
		if out[i].Category != out[j].Category {
			return dimensionOrder[out[i].Category] < dimensionOrder[out[j].Category]
		}
		return out[i].Title < out[j].Title
	})
	if r.limit > 0 && len(out) > r.limit {
		out = out[:r.limit]
	}
	return out
}

func impactOf(gain float64) scoring.ImpactLevel {
	switch {
	case gain >= highGain:
		return scoring.High
	case gain >= mediumGain:
		return scoring.Medium
	}
	return scoring.Low
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
