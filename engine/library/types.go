package library

import "golang.org/x/exp/slices"

// Wallet is the issuer key material used to sign credentials and attestations.
type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

// Account is a chain address, always lower case.
type Account = string

type Sha256 = string

// Source names an off-chain identity platform.
type Source = string

const (
	GitHub        Source = "github"
	Twitter       Source = "twitter"
	LinkedIn      Source = "linkedin"
	StackOverflow Source = "stackoverflow"
	Nostr         Source = "nostr"
)

// SupportedSources is the fixed order every component iterates identity sources in.
var SupportedSources = []Source{GitHub, Twitter, LinkedIn, StackOverflow, Nostr}

func IsSupportedSource(s Source) bool {
	return slices.Contains(SupportedSources, s)
}
