package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"zentry/engine/library"
	"zentry/signals"
)

// Calculator turns collected signals into a Score. It holds no state besides its weights and
// is safe for concurrent use.
type Calculator struct {
	weights Weights
	now     func() time.Time
}

func NewCalculator(weights Weights) (*Calculator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{weights: weights, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (c *Calculator) Weights() Weights {
	return c.weights
}

// Calculate scores the signals. No signals at all yields zero everywhere.
func (c *Calculator) Calculate(activities []signals.Activity, social map[library.Source]signals.SocialProfile) Score {
	return c.Explain(activities, social).Score(c.now())
}

// Explain scores the signals and reports every factor that went into each dimension.
func (c *Calculator) Explain(activities []signals.Activity, social map[library.Source]signals.SocialProfile) Explanation {
	in := summarize(activities, social)
	values := map[Dimension]map[string]factorValue{
		Trustworthiness: in.trustworthiness(),
		Governance:      in.governance(),
		Technical:       in.technical(),
		Community:       in.community(),
	}
	e := Explanation{
		Weights:    c.weights,
		Dimensions: make(map[Dimension]DimensionExplanation),
	}
	for _, d := range Dimensions {
		var total float64
		var factors []Factor
		for _, def := range dimensionFactors[d] {
			v := values[d][def.name]
			score := math.Max(0, math.Min(100, v.score))
			total += def.weight * score
			factors = append(factors, Factor{
				Name:        def.name,
				Impact:      impactFor(def.weight),
				Weight:      def.weight,
				Score:       roundClamp(score),
				Description: v.description,
			})
		}
		e.Dimensions[d] = DimensionExplanation{Score: roundClamp(total), Factors: factors}
	}
	e.Overall = c.weights.Overall(
		e.Dimensions[Trustworthiness].Score,
		e.Dimensions[Governance].Score,
		e.Dimensions[Technical].Score,
		e.Dimensions[Community].Score,
	)
	return e
}

type factorValue struct {
	score       float64
	description string
}

// signalSummary holds the counts every formula reads.
type signalSummary struct {
	activeMonths int
	repayments   int
	positive     int
	negative     int
	daoVotes     int
	daos         int
	deployments  int
	nftEvents    int
	social       map[library.Source]signals.SocialProfile
}

func summarize(activities []signals.Activity, social map[library.Source]signals.SocialProfile) signalSummary {
	s := signalSummary{social: social}
	months := make(map[string]struct{})
	daos := make(map[string]struct{})
	for _, a := range activities {
		if a.Type == signals.SocialPost {
			continue
		}
		if !a.Timestamp.IsZero() {
			months[a.Timestamp.UTC().Format("2006-01")] = struct{}{}
		}
		switch a.Impact {
		case signals.Positive:
			s.positive++
		case signals.Negative:
			s.negative++
		}
		switch a.Type {
		case signals.DaoVote:
			s.daoVotes++
			if v := strings.ToLower(strings.TrimSpace(a.Venue)); v != "" {
				daos[v] = struct{}{}
			}
		case signals.DeFi:
			if strings.EqualFold(a.Action, "repay") {
				s.repayments++
			}
		case signals.ContractDeploy:
			s.deployments++
		case signals.NFT:
			s.nftEvents++
		}
	}
	s.activeMonths = len(months)
	s.daos = len(daos)
	return s
}

// saturate maps a non-negative count onto [0, 100); half is the count that scores 50.
func saturate(x, half float64) float64 {
	if x <= 0 {
		return 0
	}
	return 100 * x / (x + half)
}

func mean(values ...float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func (s signalSummary) credit(source library.Source) (signals.SocialProfile, float64, bool) {
	p, ok := s.social[source]
	if !ok {
		return signals.SocialProfile{}, 0, false
	}
	if p.Verified {
		return p, 1, true
	}
	return p, UnverifiedCredit, true
}

func (s signalSummary) trustworthiness() map[string]factorValue {
	clean := factorValue{description: "No rated on-chain activity yet"}
	if rated := s.positive + s.negative; rated > 0 {
		clean = factorValue{
			score:       100 * float64(s.positive) / float64(rated),
			description: fmt.Sprintf("%d of %d rated on-chain actions were positive", s.positive, rated),
		}
	}
	return map[string]factorValue{
		FactorTransactionConsistency: {
			score:       saturate(float64(s.activeMonths), 6),
			description: fmt.Sprintf("On-chain activity in %d distinct months", s.activeMonths),
		},
		FactorRepaymentHistory: {
			score:       saturate(float64(s.repayments), 3),
			description: fmt.Sprintf("%d loan repayments to DeFi protocols", s.repayments),
		},
		FactorCleanRecord: clean,
	}
}

func (s signalSummary) governance() map[string]factorValue {
	return map[string]factorValue{
		FactorDAOParticipation: {
			score:       saturate(float64(s.daoVotes), 10),
			description: fmt.Sprintf("%d governance votes cast", s.daoVotes),
		},
		FactorDAOBreadth: {
			score:       saturate(float64(s.daos), 3),
			description: fmt.Sprintf("Voted in %d different DAOs", s.daos),
		},
	}
}

func (s signalSummary) technical() map[string]factorValue {
	out := map[string]factorValue{
		FactorGitHub:        {description: "No GitHub account linked"},
		FactorStackOverflow: {description: "No StackOverflow account linked"},
		FactorContractDeployment: {
			score:       saturate(float64(s.deployments), 3),
			description: fmt.Sprintf("%d smart contracts deployed", s.deployments),
		},
	}
	if p, credit, ok := s.credit(library.GitHub); ok {
		out[FactorGitHub] = factorValue{
			score: credit * mean(
				saturate(p.Metric(signals.MetricRepos), 10),
				saturate(p.Metric(signals.MetricStars), 50),
				saturate(p.Metric(signals.MetricContributions), 200),
			),
			description: withVerification(fmt.Sprintf("%.0f repositories, %.0f stars, %.0f recent contributions",
				p.Metric(signals.MetricRepos), p.Metric(signals.MetricStars), p.Metric(signals.MetricContributions)), p.Verified),
		}
	}
	if p, credit, ok := s.credit(library.StackOverflow); ok {
		out[FactorStackOverflow] = factorValue{
			score:       credit * saturate(p.Metric(signals.MetricReputation), 1000),
			description: withVerification(fmt.Sprintf("%.0f reputation", p.Metric(signals.MetricReputation)), p.Verified),
		}
	}
	return out
}

func (s signalSummary) community() map[string]factorValue {
	out := map[string]factorValue{
		FactorTwitter:  {description: "No Twitter account linked"},
		FactorLinkedIn: {description: "No LinkedIn account linked"},
		FactorNostr:    {description: "No nostr key linked"},
		FactorEvents: {
			score:       saturate(float64(s.nftEvents), 5),
			description: fmt.Sprintf("%d NFT and event interactions", s.nftEvents),
		},
	}
	if p, credit, ok := s.credit(library.Twitter); ok {
		out[FactorTwitter] = factorValue{
			score:       credit * saturate(p.Metric(signals.MetricFollowers), 1000),
			description: withVerification(fmt.Sprintf("%.0f followers", p.Metric(signals.MetricFollowers)), p.Verified),
		}
	}
	if p, credit, ok := s.credit(library.LinkedIn); ok {
		out[FactorLinkedIn] = factorValue{
			score: credit * mean(
				saturate(p.Metric(signals.MetricConnections), 300),
				saturate(p.Metric(signals.MetricEndorsements), 20),
			),
			description: withVerification(fmt.Sprintf("%.0f connections, %.0f endorsements",
				p.Metric(signals.MetricConnections), p.Metric(signals.MetricEndorsements)), p.Verified),
		}
	}
	if p, credit, ok := s.credit(library.Nostr); ok {
		out[FactorNostr] = factorValue{
			score: credit * mean(
				saturate(p.Metric(signals.MetricFollowers), 100),
				saturate(p.Metric(signals.MetricNotes), 200),
			),
			description: withVerification(fmt.Sprintf("%.0f followers, %.0f notes",
				p.Metric(signals.MetricFollowers), p.Metric(signals.MetricNotes)), p.Verified),
		}
	}
	return out
}

func withVerification(description string, verified bool) string {
	if verified {
		return description
	}
	return description + " (unverified, half credit)"
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func roundClamp(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(int(math.Round(v)))
}
