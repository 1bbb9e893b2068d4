package credentials

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"zentry/engine/library"
	"zentry/profiles"
)

// ProfileReader is the part of the profile store the exporter needs.
type ProfileReader interface {
	Get(ctx context.Context, address library.Account) (profiles.Profile, error)
}

// Exporter issues and checks credentials signed by the issuer wallet.
type Exporter struct {
	profiles ProfileReader
	wallet   library.Wallet
	issuer   string
	validity time.Duration
	now      func() time.Time
}

func NewExporter(reader ProfileReader, wallet library.Wallet, issuer string, validity time.Duration) *Exporter {
	if validity <= 0 {
		validity = 30 * 24 * time.Hour
	}
	return &Exporter{
		profiles: reader,
		wallet:   wallet,
		issuer:   issuer,
		validity: validity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IssuerKey is the hex x-only public key credentials are signed with.
func (e *Exporter) IssuerKey() string {
	return e.wallet.Account
}

// Export returns nil, nil when address has no profile.
func (e *Exporter) Export(ctx context.Context, address library.Account) (*Export, error) {
	p, err := e.profiles.Get(ctx, address)
	if errors.Is(err, library.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	issued := e.now().Truncate(time.Second)
	c := Credential{
		Type:           CredentialType,
		Issuer:         e.issuer,
		Subject:        p.Address,
		IssuanceDate:   issued,
		ExpirationDate: issued.Add(e.validity),
		Claims: Claims{
			ReputationScore:      p.ReputationScore.Overall,
			TrustworthinessScore: p.ReputationScore.Trustworthiness,
			GovernanceScore:      p.ReputationScore.Governance,
			TechnicalScore:       p.ReputationScore.Technical,
			CommunityScore:       p.ReputationScore.Community,
		},
		Proof: Proof{
			Type:               ProofType,
			Hash:               p.ProofHash,
			VerificationMethod: e.wallet.Account,
		},
	}
	if err := e.sign(&c); err != nil {
		return nil, fmt.Errorf("signing credential for %s: %w", address, err)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &Export{Credential: string(b), ExpiresAt: c.ExpirationDate}, nil
}

func (e *Exporter) sign(c *Credential) error {
	keyb, err := hex.DecodeString(e.wallet.PrivateKey)
	if err != nil {
		return fmt.Errorf("decoding issuer key: %w", err)
	}
	sk, _ := btcec.PrivKeyFromBytes(keyb)
	digest, err := signingDigest(*c)
	if err != nil {
		return err
	}
	sig, err := schnorr.Sign(sk, digest)
	if err != nil {
		return err
	}
	c.Proof.Signature = hex.EncodeToString(sig.Serialize())
	return nil
}

// Verify checks the signature, the expiry and that the proof hash still matches the stored
// profile. Only a malformed credential is an error.
func (e *Exporter) Verify(ctx context.Context, credential string) (Verification, error) {
	var c Credential
	if err := json.Unmarshal([]byte(credential), &c); err != nil {
		return Verification{}, fmt.Errorf("decoding credential: %w", err)
	}
	v := Verification{Expired: !e.now().Before(c.ExpirationDate)}

	if c.Type != CredentialType || c.Proof.Type != ProofType {
		v.Reason = "unsupported credential or proof type"
		return v, nil
	}
	if c.Proof.VerificationMethod != e.wallet.Account {
		v.Reason = "credential was not issued by this service"
		return v, nil
	}
	if err := checkSignature(c); err != nil {
		v.Reason = err.Error()
		return v, nil
	}

	p, err := e.profiles.Get(ctx, c.Subject)
	switch {
	case errors.Is(err, library.ErrNotFound):
		v.Reason = "no profile for subject"
		return v, nil
	case err != nil:
		return Verification{}, err
	}
	v.HashMatches = p.ProofHash == c.Proof.Hash

	switch {
	case v.Expired:
		v.Reason = "credential expired"
	case !v.HashMatches:
		v.Reason = "profile changed since issuance"
	default:
		v.Valid = true
	}
	return v, nil
}

func checkSignature(c Credential) error {
	pubb, err := hex.DecodeString(c.Proof.VerificationMethod)
	if err != nil {
		return fmt.Errorf("bad verification method: %w", err)
	}
	pub, err := schnorr.ParsePubKey(pubb)
	if err != nil {
		return fmt.Errorf("bad verification method: %w", err)
	}
	sigb, err := hex.DecodeString(c.Proof.Signature)
	if err != nil {
		return fmt.Errorf("bad signature encoding: %w", err)
	}
	sig, err := schnorr.ParseSignature(sigb)
	if err != nil {
		return fmt.Errorf("bad signature: %w", err)
	}
	digest, err := signingDigest(c)
	if err != nil {
		return err
	}
	if !sig.Verify(digest, pub) {
		return errors.New("signature does not match credential")
	}
	return nil
}
