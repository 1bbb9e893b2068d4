package signals

import (
	"context"
	"time"

	"zentry/engine/library"
)

// StaticSource serves fixed data. It backs tests and --dev mode.
type StaticSource struct {
	SourceName string
	Activities map[library.Account][]Activity
	Social     *SocialProfile
	Err        error
	Delay      time.Duration
}

func (s *StaticSource) Name() string { return s.SourceName }

func (s *StaticSource) Fetch(ctx context.Context, address library.Account, handles Handles) (Batch, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return Batch{}, s.Err
	}
	batch := Batch{Activities: append([]Activity(nil), s.Activities[address]...)}
	if s.Social != nil {
		h, ok := handles[s.Social.Source]
		if !ok {
			return batch, nil
		}
		social := *s.Social
		social.Handle = h.Identifier
		social.Verified = h.Verified
		batch.Social = &social
	}
	return batch, nil
}

// DevSources returns a fixed demo data set shaped like a typical active account.
func DevSources() []Source {
	now := time.Now().UTC()
	activity := func(id string, t ActivityType, desc, action, venue string, daysAgo int, impact Impact) Activity {
		return Activity{
			ID:          id,
			Type:        t,
			Description: desc,
			Timestamp:   now.AddDate(0, 0, -daysAgo),
			Network:     "ethereum",
			Impact:      impact,
			SourceRef:   "0x" + library.Sha256Sum(id),
			Action:      action,
			Venue:       venue,
		}
	}
	chain := &wildcardSource{name: "chain:dev", activities: []Activity{
		activity("1", DaoVote, "Voted on proposal ENS-10: Treasury Diversification", "for", "ENS DAO", 1, Positive),
		activity("2", DeFi, "Supplied 5 ETH to Aave lending pool", "supply", "Aave", 3, Positive),
		activity("3", NFT, "Purchased Bored Ape #8765", "buy", "Bored Ape Yacht Club", 6, Neutral),
		activity("4", DeFi, "Repaid 2000 USDC on Compound", "repay", "Compound", 40, Positive),
		activity("5", DaoVote, "Voted on Uniswap temperature check", "against", "Uniswap", 75, Positive),
		activity("6", ContractDeploy, "Deployed a verified ERC-20 contract", "", "", 120, Positive),
	}}
	return []Source{
		chain,
		&StaticSource{SourceName: library.GitHub, Social: &SocialProfile{Source: library.GitHub, Metrics: map[string]float64{
			MetricRepos: 15, MetricStars: 120, MetricContributions: 450, MetricFollowers: 40}}},
		&StaticSource{SourceName: library.Twitter, Social: &SocialProfile{Source: library.Twitter, Metrics: map[string]float64{
			MetricFollowers: 1200, MetricFollowing: 500, MetricTweets: 3200}}},
		&StaticSource{SourceName: library.LinkedIn, Social: &SocialProfile{Source: library.LinkedIn, Metrics: map[string]float64{
			MetricConnections: 500, MetricEndorsements: 25}}},
		&StaticSource{SourceName: library.StackOverflow, Social: &SocialProfile{Source: library.StackOverflow, Metrics: map[string]float64{
			MetricReputation: 5000, MetricGoldBadges: 2, MetricSilverBadges: 15, MetricBronzeBadges: 30}}},
	}
}

// wildcardSource returns the same activities for any address.
type wildcardSource struct {
	name       string
	activities []Activity
}

func (s *wildcardSource) Name() string { return s.name }

func (s *wildcardSource) Fetch(_ context.Context, _ library.Account, _ Handles) (Batch, error) {
	return Batch{Activities: append([]Activity(nil), s.activities...)}, nil
}
