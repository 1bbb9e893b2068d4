package profiles

import (
	"sort"

	"zentry/engine/library"
)

type hashedIdentity struct {
	Source     library.Source `json:"source"`
	Identifier string         `json:"identifier"`
	Verified   bool           `json:"verified"`
	Unlinked   bool           `json:"unlinked"`
}

type hashedProfile struct {
	Address         library.Account  `json:"address"`
	Overall         int              `json:"overallScore"`
	Trustworthiness int              `json:"trustworthinessScore"`
	Governance      int              `json:"governanceScore"`
	Technical       int              `json:"technicalScore"`
	Community       int              `json:"communityScore"`
	Identities      []hashedIdentity `json:"identities"`
}

// ProofHash commits to the address, the five scores and the linked accounts. Timestamps, history
// and the resource id are left out so equal content always yields the same hash.
func ProofHash(p Profile) (string, error) {
	b, err := ProofData(p)
	if err != nil {
		return "", err
	}
	return "0x" + library.Sha256Sum(b), nil
}

// ProofData is the canonical JSON document ProofHash hashes.
func ProofData(p Profile) ([]byte, error) {
	h := hashedProfile{
		Address:         p.Address,
		Overall:         p.ReputationScore.Overall,
		Trustworthiness: p.ReputationScore.Trustworthiness,
		Governance:      p.ReputationScore.Governance,
		Technical:       p.ReputationScore.Technical,
		Community:       p.ReputationScore.Community,
		Identities:      []hashedIdentity{},
	}
	for _, id := range p.Identities {
		h.Identities = append(h.Identities, hashedIdentity{
			Source:     id.Source,
			Identifier: id.Identifier,
			Verified:   id.Verified,
			Unlinked:   id.Unlinked,
		})
	}
	sort.SliceStable(h.Identities, func(i, j int) bool {
		return h.Identities[i].Source < h.Identities[j].Source
	})
	return library.StableJSON(h)
}
