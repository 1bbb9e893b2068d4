package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zentry/engine/library"
	"zentry/signals"
)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(DefaultWeights())
	require.NoError(t, err)
	return c
}

func month(n int) time.Time {
	return time.Date(2025, time.Month(1+n%12), 15, 0, 0, 0, 0, time.UTC).AddDate(n/12, 0, 0)
}

func assertBounded(t *testing.T, s Score) {
	t.Helper()
	for _, v := range []int{s.Overall, s.Trustworthiness, s.Governance, s.Technical, s.Community} {
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 100)
	}
}

func TestNoSignalsScoresZero(t *testing.T) {
	s := newCalculator(t).Calculate(nil, nil)
	assert.True(t, s.SameValues(Score{}))
	assert.False(t, s.LastUpdated.IsZero())
}

func TestDimensionFactorWeightsSumToOne(t *testing.T) {
	for d, factors := range dimensionFactors {
		var sum float64
		for _, f := range factors {
			sum += f.weight
		}
		assert.InDelta(t, 1.0, sum, 1e-9, string(d))
	}
}

func TestGovernanceFromDAOVotes(t *testing.T) {
	var activities []signals.Activity
	for i := 0; i < 10; i++ {
		venue := "ENS DAO"
		if i%2 == 1 {
			venue = "Uniswap"
		}
		activities = append(activities, signals.Activity{Type: signals.DaoVote, Timestamp: month(i), Venue: venue, Impact: signals.Positive})
	}
	e := newCalculator(t).Explain(activities, nil)
	// participation 50 * 0.7 + breadth 40 * 0.3
	assert.Equal(t, 47, e.Dimensions[Governance].Score)
	require.Len(t, e.Dimensions[Governance].Factors, 2)
	assert.Equal(t, FactorDAOParticipation, e.Dimensions[Governance].Factors[0].Name)
	assert.Equal(t, High, e.Dimensions[Governance].Factors[0].Impact)
	assert.Equal(t, 50, e.Dimensions[Governance].Factors[0].Score)
	assert.Equal(t, Medium, e.Dimensions[Governance].Factors[1].Impact)
}

func TestTrustworthiness(t *testing.T) {
	activities := []signals.Activity{
		{Type: signals.DeFi, Action: "repay", Timestamp: month(0), Impact: signals.Positive},
		{Type: signals.DeFi, Action: "Repay", Timestamp: month(1), Impact: signals.Positive},
		{Type: signals.DeFi, Action: "repay", Timestamp: month(2), Impact: signals.Positive},
		{Type: signals.Transfer, Timestamp: month(3), Impact: signals.Negative},
		{Type: signals.Transfer, Timestamp: month(4), Impact: signals.Neutral},
		{Type: signals.Transfer, Timestamp: month(5)},
		{Type: signals.SocialPost, Timestamp: month(6), Impact: signals.Negative},
	}
	e := newCalculator(t).Explain(activities, nil)
	// consistency 50 * 0.5 + repayments 50 * 0.3 + clean record 75 * 0.2
	assert.Equal(t, 55, e.Dimensions[Trustworthiness].Score)
	assert.Equal(t, 75, e.Dimensions[Trustworthiness].Factors[2].Score)
}

func TestUnverifiedSocialEarnsHalfCredit(t *testing.T) {
	social := func(verified bool) map[library.Source]signals.SocialProfile {
		return map[library.Source]signals.SocialProfile{library.Twitter: {
			Source: library.Twitter, Verified: verified, Metrics: map[string]float64{signals.MetricFollowers: 1000}}}
	}
	c := newCalculator(t)
	verified := c.Explain(nil, social(true))
	unverified := c.Explain(nil, social(false))
	assert.Equal(t, 50, verified.Dimensions[Community].Factors[0].Score)
	assert.Equal(t, 25, unverified.Dimensions[Community].Factors[0].Score)
	assert.Contains(t, unverified.Dimensions[Community].Factors[0].Description, "unverified")
	assert.Greater(t, verified.Dimensions[Community].Score, unverified.Dimensions[Community].Score)
}

func TestScoresAreMonotonic(t *testing.T) {
	c := newCalculator(t)
	base := []signals.Activity{{Type: signals.DaoVote, Timestamp: month(0), Venue: "a", Impact: signals.Positive}}
	prev := c.Calculate(base, nil)
	activities := base
	for i := 1; i < 40; i++ {
		activities = append(activities,
			signals.Activity{Type: signals.DaoVote, Timestamp: month(i), Venue: "a", Impact: signals.Positive},
			signals.Activity{Type: signals.ContractDeploy, Timestamp: month(i), Impact: signals.Positive},
		)
		next := c.Calculate(activities, nil)
		assertBounded(t, next)
		assert.GreaterOrEqual(t, next.Governance, prev.Governance)
		assert.GreaterOrEqual(t, next.Technical, prev.Technical)
		assert.GreaterOrEqual(t, next.Overall, prev.Overall)
		prev = next
	}
}

func TestHugeMetricsStayBounded(t *testing.T) {
	social := map[library.Source]signals.SocialProfile{}
	metrics := map[string]float64{}
	for _, m := range []string{signals.MetricRepos, signals.MetricStars, signals.MetricContributions, signals.MetricFollowers,
		signals.MetricConnections, signals.MetricEndorsements, signals.MetricReputation, signals.MetricNotes} {
		metrics[m] = 1e12
	}
	for _, s := range library.SupportedSources {
		social[s] = signals.SocialProfile{Source: s, Verified: true, Metrics: metrics}
	}
	s := newCalculator(t).Calculate(nil, social)
	assertBounded(t, s)
	assert.Equal(t, 75, s.Technical)
}

func TestWeights(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.ErrorIs(t, Weights{Trustworthiness: -1, Governance: 2}.Validate(), library.ErrInvalidWeights)
	assert.ErrorIs(t, Weights{}.Validate(), library.ErrInvalidWeights)
	_, err := NewCalculator(Weights{})
	assert.ErrorIs(t, err, library.ErrInvalidWeights)

	w := DefaultWeights()
	assert.Equal(t, 100, w.Overall(100, 100, 100, 100))
	assert.Equal(t, 30, w.Overall(100, 0, 0, 0))
	assert.Equal(t, 100, Weights{Technical: 1}.Overall(0, 0, 100, 0))
	assert.Equal(t, 100, w.Overall(500, 500, 500, 500))
}

func TestExplanationMatchesScore(t *testing.T) {
	c := newCalculator(t)
	activities := []signals.Activity{
		{Type: signals.DaoVote, Timestamp: month(0), Venue: "ENS DAO", Impact: signals.Positive},
		{Type: signals.NFT, Timestamp: month(1), Impact: signals.Neutral},
	}
	e := c.Explain(activities, nil)
	s := c.Calculate(activities, nil)
	assert.True(t, s.SameValues(e.Score(s.LastUpdated)))
	for _, d := range Dimensions {
		assert.NotEmpty(t, e.Dimensions[d].Factors)
	}
}
