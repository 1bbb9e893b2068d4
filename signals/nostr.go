package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"zentry/engine/actors"
	"zentry/engine/library"
)

// RelayFetcher queries nostr relays; actors.FetchFromRelays in production.
type RelayFetcher func(ctx context.Context, relays []string, filters nostr.Filters, timeout time.Duration) map[string]nostr.Event

// NostrSource counts the notes a linked pubkey authored and the contact lists that follow it.
type NostrSource struct {
	relays  []string
	timeout time.Duration
	fetch   RelayFetcher
}

func NewNostrSource(relays []string, timeout time.Duration, fetch RelayFetcher) *NostrSource {
	if fetch == nil {
		fetch = actors.FetchFromRelays
	}
	return &NostrSource{relays: relays, timeout: timeout, fetch: fetch}
}

func (s *NostrSource) Name() string { return library.Nostr }

func (s *NostrSource) Fetch(ctx context.Context, _ library.Account, handles Handles) (Batch, error) {
	h, ok := handles[library.Nostr]
	if !ok || h.Identifier == "" || len(s.relays) == 0 {
		return Batch{}, ErrNotApplicable
	}
	pubkey, err := library.NostrPubkey(h.Identifier)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", err, library.ErrSourceUnavailable)
	}
	filters := nostr.Filters{
		nostr.Filter{
			Kinds:   []int{1},
			Authors: []string{pubkey},
			Limit:   500,
		},
		nostr.Filter{
			Kinds: []int{3},
			Tags:  nostr.TagMap{"p": []string{pubkey}},
			Limit: 1000,
		}}
	events := s.fetch(ctx, s.relays, filters, relayBudget(ctx, s.timeout))
	if err := ctx.Err(); err != nil && len(events) == 0 {
		return Batch{}, fmt.Errorf("nostr relays: %w: %v", library.ErrSourceUnavailable, err)
	}
	var notes int
	followers := make(map[string]struct{})
	var activities []Activity
	for _, event := range events {
		switch {
		case event.Kind == 1 && event.PubKey == pubkey:
			notes++
			activities = append(activities, Activity{
				ID:          event.ID,
				Type:        SocialPost,
				Description: "Published a nostr note",
				Timestamp:   time.Unix(int64(event.CreatedAt), 0).UTC(),
				Network:     "nostr",
				Impact:      Neutral,
				SourceRef:   "nostr:" + event.ID,
			})
		case event.Kind == 3 && event.PubKey != pubkey:
			followers[event.PubKey] = struct{}{}
		}
	}
	return Batch{
		Activities: activities,
		Social: &SocialProfile{
			Source:   library.Nostr,
			Handle:   h.Identifier,
			Verified: h.Verified,
			Metrics: map[string]float64{
				MetricNotes:     float64(notes),
				MetricFollowers: float64(len(followers)),
			},
		},
	}, nil
}

// relayBudget keeps the relay fetch inside the caller's deadline so slow relays end the fetch
// with whatever arrived instead of failing the whole source.
func relayBudget(ctx context.Context, timeout time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return timeout
	}
	if budget := time.Until(deadline) * 3 / 4; timeout <= 0 || budget < timeout {
		return budget
	}
	return timeout
}
