package profiles

import (
	"time"

	"zentry/engine/library"
	"zentry/scoring"
)

// LinkedAccount is an external account claimed by an address. Accounts are never removed, only
// marked unlinked.
type LinkedAccount struct {
	Source         library.Source `json:"source"`
	Identifier     string         `json:"identifier"`
	Verified       bool           `json:"verified"`
	VerifiedAt     *time.Time     `json:"verifiedAt,omitempty"`
	VerificationID string         `json:"verificationId,omitempty"`
	Unlinked       bool           `json:"unlinked"`
	UnlinkedAt     *time.Time     `json:"unlinkedAt,omitempty"`
	LinkedAt       time.Time      `json:"linkedAt"`
}

// Profile is the persisted reputation record of one address.
type Profile struct {
	Address         library.Account `json:"address"`
	Identities      []LinkedAccount `json:"identities"`
	ReputationScore scoring.Score   `json:"reputationScore"`
	ProofHash       string          `json:"proofHash"`
	LastUpdated     time.Time       `json:"lastUpdated"`
	History         []scoring.Score `json:"history"`
	ResourceID      string          `json:"resourceId"`
}

// Copy returns a profile that shares no slices with p.
func (p Profile) Copy() Profile {
	c := p
	c.Identities = append([]LinkedAccount{}, p.Identities...)
	c.History = append([]scoring.Score{}, p.History...)
	return c
}

func (p Profile) Identity(source library.Source) (LinkedAccount, bool) {
	for _, id := range p.Identities {
		if id.Source == source {
			return id, true
		}
	}
	return LinkedAccount{}, false
}

// setIdentity replaces the account for its source or appends it.
func (p *Profile) setIdentity(account LinkedAccount) {
	for i := range p.Identities {
		if p.Identities[i].Source == account.Source {
			p.Identities[i] = account
			return
		}
	}
	p.Identities = append(p.Identities, account)
}

type StoreResult struct {
	ProofHash string `json:"proofHash"`
}

type VerifyResult struct {
	Success        bool   `json:"success"`
	VerificationID string `json:"verificationId,omitempty"`
}
