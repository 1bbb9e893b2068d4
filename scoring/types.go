package scoring

import (
	"fmt"
	"time"

	"zentry/engine/library"
)

type Dimension string

const (
	Trustworthiness Dimension = "trustworthiness"
	Governance      Dimension = "governance"
	Technical       Dimension = "technical"
	Community       Dimension = "community"
)

// Dimensions is the fixed order used whenever dimensions are iterated.
var Dimensions = []Dimension{Trustworthiness, Governance, Technical, Community}

// Score is a reputation snapshot. Every field is an integer in [0, 100].
type Score struct {
	Overall         int       `json:"overallScore"`
	Trustworthiness int       `json:"trustworthinessScore"`
	Governance      int       `json:"governanceScore"`
	Technical       int       `json:"technicalScore"`
	Community       int       `json:"communityScore"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

func (s Score) Dimension(d Dimension) int {
	switch d {
	case Trustworthiness:
		return s.Trustworthiness
	case Governance:
		return s.Governance
	case Technical:
		return s.Technical
	case Community:
		return s.Community
	}
	return 0
}

// SameValues compares the five scores and ignores LastUpdated.
func (s Score) SameValues(o Score) bool {
	return s.Overall == o.Overall &&
		s.Trustworthiness == o.Trustworthiness &&
		s.Governance == o.Governance &&
		s.Technical == o.Technical &&
		s.Community == o.Community
}

// Weights configures how the four dimensions combine into the overall score.
type Weights struct {
	Trustworthiness float64 `json:"trustworthiness"`
	Governance      float64 `json:"governance"`
	Technical       float64 `json:"technical"`
	Community       float64 `json:"community"`
}

func DefaultWeights() Weights {
	return Weights{Trustworthiness: 0.30, Governance: 0.25, Technical: 0.25, Community: 0.20}
}

func (w Weights) Of(d Dimension) float64 {
	switch d {
	case Trustworthiness:
		return w.Trustworthiness
	case Governance:
		return w.Governance
	case Technical:
		return w.Technical
	case Community:
		return w.Community
	}
	return 0
}

func (w Weights) Sum() float64 {
	return w.Trustworthiness + w.Governance + w.Technical + w.Community
}

// Validate requires non-negative weights with a positive sum, which keeps the overall score
// monotonic in every dimension.
func (w Weights) Validate() error {
	for _, d := range Dimensions {
		if w.Of(d) < 0 {
			return fmt.Errorf("%s weight %v is negative: %w", d, w.Of(d), library.ErrInvalidWeights)
		}
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("weights sum to %v: %w", w.Sum(), library.ErrInvalidWeights)
	}
	return nil
}

// Overall is the weighted mean of the dimension scores, rounded and clamped to [0, 100].
func (w Weights) Overall(trust, governance, technical, community int) int {
	sum := w.Sum()
	if sum <= 0 {
		return 0
	}
	total := w.Trustworthiness*float64(clamp(trust)) +
		w.Governance*float64(clamp(governance)) +
		w.Technical*float64(clamp(technical)) +
		w.Community*float64(clamp(community))
	return roundClamp(total / sum)
}

type ImpactLevel string

const (
	Low    ImpactLevel = "low"
	Medium ImpactLevel = "medium"
	High   ImpactLevel = "high"
)

// Factor is one documented input of a dimension score.
type Factor struct {
	Name        string      `json:"name"`
	Impact      ImpactLevel `json:"impact"`
	Weight      float64     `json:"weight"`
	Score       int         `json:"score"`
	Description string      `json:"description"`
}

type DimensionExplanation struct {
	Score   int      `json:"score"`
	Factors []Factor `json:"factors"`
}

type Explanation struct {
	Overall    int                                `json:"overallScore"`
	Weights    Weights                            `json:"weights"`
	Dimensions map[Dimension]DimensionExplanation `json:"dimensions"`
}

// Score converts the explanation into a Score stamped with at.
func (e Explanation) Score(at time.Time) Score {
	return Score{
		Overall:         e.Overall,
		Trustworthiness: e.Dimensions[Trustworthiness].Score,
		Governance:      e.Dimensions[Governance].Score,
		Technical:       e.Dimensions[Technical].Score,
		Community:       e.Dimensions[Community].Score,
		LastUpdated:     at,
	}
}
