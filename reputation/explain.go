package reputation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"zentry/scoring"
)

var dimensionKeywords = map[scoring.Dimension][]string{
	scoring.Trustworthiness: {"trust", "repay", "loan", "defi", "liquidat", "transaction", "reliab"},
	scoring.Governance:      {"govern", "dao", "vote", "voting", "proposal"},
	scoring.Technical:       {"technical", "github", "code", "develop", "contract", "stack"},
	scoring.Community:       {"community", "social", "twitter", "linkedin", "nostr", "follow", "event"},
}

// focusOf picks the dimension a question is about, or "" when it names none.
func focusOf(question string) scoring.Dimension {
	q := strings.ToLower(question)
	for _, d := range scoring.Dimensions {
		for _, k := range dimensionKeywords[d] {
			if strings.Contains(q, k) {
				return d
			}
		}
	}
	return ""
}

// ExplainText answers a free text question about an address's score. The answer is built only
// from the explanation, so the same signals always give the same text.
func (s *Service) ExplainText(ctx context.Context, address, question string) (string, error) {
	e, err := s.Explain(ctx, address)
	if err != nil {
		return "", err
	}
	return Narrate(e, question), nil
}

func Narrate(e scoring.Explanation, question string) string {
	b := &strings.Builder{}
	if focus := focusOf(question); focus != "" {
		narrateDimension(b, focus, e.Dimensions[focus], e.Weights.Of(focus)/e.Weights.Sum())
		return strings.TrimSpace(b.String())
	}
	fmt.Fprintf(b, "The overall reputation score is %d out of 100, a weighted mean of four dimensions.\n", e.Overall)
	for _, d := range scoring.Dimensions {
		fmt.Fprintf(b, "- %s: %d (weight %.0f%%)\n", d, e.Dimensions[d].Score, 100*e.Weights.Of(d)/e.Weights.Sum())
	}
	strongest, weakest := scoring.Dimensions[0], scoring.Dimensions[0]
	for _, d := range scoring.Dimensions[1:] {
		if e.Dimensions[d].Score > e.Dimensions[strongest].Score {
			strongest = d
		}
		if e.Dimensions[d].Score < e.Dimensions[weakest].Score {
			weakest = d
		}
	}
	if strongest != weakest {
		fmt.Fprintf(b, "The strongest dimension is %s and the weakest is %s.\n", strongest, weakest)
	}
	if f, ok := weakestFactor(e.Dimensions[weakest]); ok {
		fmt.Fprintf(b, "Improving %s (currently %d) would raise %s the most.\n", f.Name, f.Score, weakest)
	}
	return strings.TrimSpace(b.String())
}

func narrateDimension(b *strings.Builder, d scoring.Dimension, de scoring.DimensionExplanation, share float64) {
	fmt.Fprintf(b, "The %s score is %d out of 100 and makes up %.0f%% of the overall score.\n", d, de.Score, 100*share)
	factors := append([]scoring.Factor(nil), de.Factors...)
	sort.SliceStable(factors, func(i, j int) bool { return factors[i].Weight > factors[j].Weight })
	for _, f := range factors {
		fmt.Fprintf(b, "- %s scored %d with %s impact: %s\n", f.Name, f.Score, f.Impact, f.Description)
	}
}

// weakestFactor is the factor with the most weighted room to improve.
func weakestFactor(de scoring.DimensionExplanation) (scoring.Factor, bool) {
	var best scoring.Factor
	var room float64
	for _, f := range de.Factors {
		if r := float64(100-f.Score) * f.Weight; r > room {
			best, room = f, r
		}
	}
	return best, room > 0
}
