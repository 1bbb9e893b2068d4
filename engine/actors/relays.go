package actors

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"zentry/engine/library"
)

// PublishToRelays sends the event to every relay concurrently, each under its own timeout.
// It returns the number of relays that accepted the event.
func PublishToRelays(ctx context.Context, relays []string, event nostr.Event, timeout time.Duration) int {
	var accepted int
	mu := &deadlock.Mutex{}
	wait := &deadlock.WaitGroup{}
	for _, url := range relays {
		wait.Add(1)
		go func(url string) {
			defer wait.Done()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			relay, err := nostr.RelayConnect(ctx, url)
			if err != nil {
				library.LogCLI(err.Error(), 2)
				return
			}
			defer relay.Close()
			_, err = relay.Publish(ctx, event)
			if err != nil {
				library.LogCLI(err.Error(), 2)
				return
			}
			mu.Lock()
			accepted++
			mu.Unlock()
		}(url)
	}
	wait.Wait()
	return accepted
}

const eoseGrace = 100 * time.Millisecond

// FetchFromRelays runs filters against every relay and returns the de-duplicated events. Each
// relay is done once it signals the end of its stored events or its timeout expires.
func FetchFromRelays(ctx context.Context, relays []string, filters nostr.Filters, timeout time.Duration) map[string]nostr.Event {
	sane := library.ValidateSaneExecutionTime()
	defer sane()
	events := make(map[string]nostr.Event)
	eventsMu := &deadlock.Mutex{}
	wait := &deadlock.WaitGroup{}
	for _, url := range relays {
		wait.Add(1)
		go func(url string) {
			defer wait.Done()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			relay, err := nostr.RelayConnect(ctx, url)
			if err != nil {
				library.LogCLI(err.Error(), 3)
				return
			}
			defer relay.Close()
			sub, err := relay.Subscribe(ctx, filters)
			if err != nil {
				library.LogCLI(err.Error(), 2)
				return
			}
			defer sub.Unsub()
			// stored events can still be in flight when EOSE lands, so keep reading briefly after it
			eose := sub.EndOfStoredEvents
			var settled <-chan time.Time
			for {
				select {
				case ev, ok := <-sub.Events:
					if !ok || ev == nil {
						return
					}
					eventsMu.Lock()
					events[ev.ID] = *ev
					eventsMu.Unlock()
				case <-eose:
					eose = nil
					settled = time.After(eoseGrace)
				case <-settled:
					return
				case <-ctx.Done():
					return
				}
			}
		}(url)
	}
	wait.Wait()
	return events
}
