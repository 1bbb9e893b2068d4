package credentials

import (
	"encoding/hex"
	"time"

	"zentry/engine/library"
)

const (
	CredentialType = "VerifiableCredential"
	ProofType      = "SchnorrSecp256k1Signature2024"
)

type Claims struct {
	ReputationScore      int `json:"reputationScore"`
	TrustworthinessScore int `json:"trustworthinessScore"`
	GovernanceScore      int `json:"governanceScore"`
	TechnicalScore       int `json:"technicalScore"`
	CommunityScore       int `json:"communityScore"`
}

// Proof binds the claims to a profile's proof hash and to the issuer key.
type Proof struct {
	Type               string `json:"type"`
	Hash               string `json:"hash"`
	VerificationMethod string `json:"verificationMethod"`
	Signature          string `json:"signature"`
}

// Credential is the portable, signed statement of an address's scores.
type Credential struct {
	Type           string          `json:"type"`
	Issuer         string          `json:"issuer"`
	Subject        library.Account `json:"subject"`
	IssuanceDate   time.Time       `json:"issuanceDate"`
	ExpirationDate time.Time       `json:"expirationDate"`
	Claims         Claims          `json:"claims"`
	Proof          Proof           `json:"proof"`
}

// Export is what callers receive: the serialized credential and when it stops being valid.
type Export struct {
	Credential string    `json:"credential"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type Verification struct {
	Valid       bool   `json:"valid"`
	Expired     bool   `json:"expired"`
	HashMatches bool   `json:"hashMatches"`
	Reason      string `json:"reason,omitempty"`
}

// signingDigest is sha256 over the canonical JSON of the credential with an empty signature.
func signingDigest(c Credential) ([]byte, error) {
	c.Proof.Signature = ""
	b, err := library.StableJSON(c)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(library.Sha256Sum(b))
}
