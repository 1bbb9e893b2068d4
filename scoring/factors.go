package scoring

import "zentry/engine/library"

// Factor names. Recommendation templates are keyed by these.
const (
	FactorTransactionConsistency = "Transaction Consistency"
	FactorRepaymentHistory       = "DeFi Repayments"
	FactorCleanRecord            = "Clean Record"
	FactorDAOParticipation       = "DAO Participation"
	FactorDAOBreadth             = "DAO Breadth"
	FactorGitHub                 = "GitHub Activity"
	FactorStackOverflow          = "StackOverflow"
	FactorContractDeployment     = "Contract Deployment"
	FactorTwitter                = "Twitter Engagement"
	FactorLinkedIn               = "Professional Network"
	FactorNostr                  = "Nostr Presence"
	FactorEvents                 = "NFT & Event Participation"
)

type factorDef struct {
	name   string
	weight float64
}

// dimensionFactors lists every dimension's factors and their weights, which sum to 1.
var dimensionFactors = map[Dimension][]factorDef{
	Trustworthiness: {
		{FactorTransactionConsistency, 0.5},
		{FactorRepaymentHistory, 0.3},
		{FactorCleanRecord, 0.2},
	},
	Governance: {
		{FactorDAOParticipation, 0.7},
		{FactorDAOBreadth, 0.3},
	},
	Technical: {
		{FactorGitHub, 0.45},
		{FactorStackOverflow, 0.30},
		{FactorContractDeployment, 0.25},
	},
	Community: {
		{FactorTwitter, 0.35},
		{FactorLinkedIn, 0.25},
		{FactorNostr, 0.25},
		{FactorEvents, 0.15},
	},
}

// SourceFactor says which factor a linked identity source feeds.
type SourceFactor struct {
	Dimension Dimension
	Factor    string
	Weight    float64
}

var sourceFactors = map[library.Source]SourceFactor{
	library.GitHub:        {Technical, FactorGitHub, 0.45},
	library.StackOverflow: {Technical, FactorStackOverflow, 0.30},
	library.Twitter:       {Community, FactorTwitter, 0.35},
	library.LinkedIn:      {Community, FactorLinkedIn, 0.25},
	library.Nostr:         {Community, FactorNostr, 0.25},
}

func FactorForSource(s library.Source) (SourceFactor, bool) {
	f, ok := sourceFactors[s]
	return f, ok
}

// UnverifiedCredit is the share of a social factor an unverified account earns.
const UnverifiedCredit = 0.5

func impactFor(weight float64) ImpactLevel {
	switch {
	case weight >= 0.4:
		return High
	case weight >= 0.25:
		return Medium
	}
	return Low
}
