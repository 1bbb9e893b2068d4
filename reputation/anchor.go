package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"zentry/engine/actors"
	"zentry/engine/library"
	"zentry/scoring"
)

// KindScoreAnchor is the parameterized replaceable kind score attestations are published under.
const KindScoreAnchor = 30078

// Anchor publishes a stored score somewhere outside the store so third parties can check it.
type Anchor interface {
	Anchor(ctx context.Context, address library.Account, score scoring.Score, proofHash string) error
}

type NopAnchor struct{}

func (NopAnchor) Anchor(context.Context, library.Account, scoring.Score, string) error { return nil }

// Publisher sends an event to relays and reports how many accepted it.
type Publisher func(ctx context.Context, relays []string, event nostr.Event, timeout time.Duration) int

// NostrAnchor publishes one replaceable event per address, signed by the issuer wallet.
type NostrAnchor struct {
	wallet  library.Wallet
	relays  []string
	timeout time.Duration
	publish Publisher
}

func NewNostrAnchor(wallet library.Wallet, relays []string, timeout time.Duration, publish Publisher) *NostrAnchor {
	if publish == nil {
		publish = actors.PublishToRelays
	}
	return &NostrAnchor{wallet: wallet, relays: relays, timeout: timeout, publish: publish}
}

type anchorContent struct {
	Address   library.Account `json:"address"`
	Score     scoring.Score   `json:"score"`
	ProofHash string          `json:"proofHash"`
}

func (a *NostrAnchor) Event(address library.Account, score scoring.Score, proofHash string) (nostr.Event, error) {
	content, err := json.Marshal(anchorContent{Address: address, Score: score, ProofHash: proofHash})
	if err != nil {
		return nostr.Event{}, err
	}
	e := nostr.Event{
		PubKey:    a.wallet.Account,
		CreatedAt: nostr.Timestamp(score.LastUpdated.Unix()),
		Kind:      KindScoreAnchor,
		Tags: nostr.Tags{
			nostr.Tag{"d", "zentry:" + address},
			nostr.Tag{"proof", proofHash},
		},
		Content: string(content),
	}
	if err := e.Sign(a.wallet.PrivateKey); err != nil {
		return nostr.Event{}, err
	}
	return e, nil
}

func (a *NostrAnchor) Anchor(ctx context.Context, address library.Account, score scoring.Score, proofHash string) error {
	if len(a.relays) == 0 {
		return nil
	}
	e, err := a.Event(address, score, proofHash)
	if err != nil {
		return err
	}
	if accepted := a.publish(ctx, a.relays, e, a.timeout); accepted == 0 {
		return fmt.Errorf("anchor event %s: no relay accepted it", e.ID)
	}
	return nil
}
