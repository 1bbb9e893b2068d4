package recommend

import "zentry/scoring"

type template struct {
	title       string
	description string
}

// templates holds one improvement action per scoring factor.
var templates = map[string]template{
	scoring.FactorTransactionConsistency: {
		title:       "Stay active on-chain every month",
		description: "Regular activity spread over many months builds a consistent transaction history.",
	},
	scoring.FactorRepaymentHistory: {
		title:       "Repay DeFi loans on time",
		description: "Borrow small amounts from a lending protocol such as Aave or Compound and repay them to build a repayment record.",
	},
	scoring.FactorCleanRecord: {
		title:       "Avoid liquidations and flagged interactions",
		description: "Negative events such as liquidations or interactions with flagged contracts lower your clean record share.",
	},
	scoring.FactorDAOParticipation: {
		title:       "Vote on DAO proposals",
		description: "Cast votes in the DAOs whose tokens you hold. Every vote counts toward governance participation.",
	},
	scoring.FactorDAOBreadth: {
		title:       "Participate in more DAOs",
		description: "Governance activity across several communities scores higher than activity in a single one.",
	},
	scoring.FactorGitHub: {
		title:       "Contribute to open source on GitHub",
		description: "Public repositories, stars and recent pushes or pull requests raise your technical score.",
	},
	scoring.FactorStackOverflow: {
		title:       "Answer questions on StackOverflow",
		description: "Reputation earned by answering questions demonstrates technical expertise.",
	},
	scoring.FactorContractDeployment: {
		title:       "Deploy and verify a smart contract",
		description: "Deploying verified contracts from this address shows hands-on development experience.",
	},
	scoring.FactorTwitter: {
		title:       "Grow your Twitter audience",
		description: "Share your Web3 work on Twitter. Followers raise community engagement.",
	},
	scoring.FactorLinkedIn: {
		title:       "Grow your professional network",
		description: "LinkedIn connections and skill endorsements raise your professional network factor.",
	},
	scoring.FactorNostr: {
		title:       "Publish on nostr",
		description: "Notes from a linked nostr key and the people who follow it raise your nostr presence.",
	},
	scoring.FactorEvents: {
		title:       "Join community events",
		description: "Collect event POAPs and participate in NFT communities.",
	},
}

var sourceTitles = map[string]string{
	"github":        "GitHub",
	"twitter":       "Twitter",
	"linkedin":      "LinkedIn",
	"stackoverflow": "StackOverflow",
	"nostr":         "nostr",
}
