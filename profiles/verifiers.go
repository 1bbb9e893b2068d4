package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"zentry/engine/actors"
	"zentry/engine/library"
	"zentry/signals"
)

// Challenge is the text a user publishes on an external account to prove they control it.
func Challenge(address library.Account) string {
	return "zentry-verify:" + address
}

// Verifier checks out of band that identifier is controlled by whoever controls address.
// A false result with a nil error is a clean rejection.
type Verifier interface {
	Verify(ctx context.Context, address library.Account, identifier string) (bool, error)
}

// Verifiers maps each identity source to its verifier.
type Verifiers map[library.Source]Verifier

// GitHubVerifier looks for a public gist whose description contains the challenge.
type GitHubVerifier struct {
	api    string
	token  string
	client *http.Client
}

func NewGitHubVerifier(api, token string, client *http.Client) *GitHubVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &GitHubVerifier{api: strings.TrimRight(api, "/"), token: token, client: client}
}

type gist struct {
	Description string `json:"description"`
}

func (v *GitHubVerifier) Verify(ctx context.Context, address library.Account, identifier string) (bool, error) {
	u := fmt.Sprintf("%s/users/%s/gists?per_page=100", v.api, url.PathEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if v.token != "" {
		req.Header.Set("Authorization", "Bearer "+v.token)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	var gists []gist
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&gists); err != nil {
		return false, err
	}
	challenge := Challenge(address)
	for _, g := range gists {
		if strings.Contains(g.Description, challenge) {
			return true, nil
		}
	}
	return false, nil
}

// NostrVerifier looks for a kind 1 note from the pubkey that contains the challenge and carries
// a valid signature.
type NostrVerifier struct {
	relays  []string
	timeout time.Duration
	fetch   signals.RelayFetcher
}

func NewNostrVerifier(relays []string, timeout time.Duration, fetch signals.RelayFetcher) *NostrVerifier {
	if fetch == nil {
		fetch = actors.FetchFromRelays
	}
	return &NostrVerifier{relays: relays, timeout: timeout, fetch: fetch}
}

func (v *NostrVerifier) Verify(ctx context.Context, address library.Account, identifier string) (bool, error) {
	pubkey, err := library.NostrPubkey(identifier)
	if err != nil {
		return false, err
	}
	if len(v.relays) == 0 {
		return false, fmt.Errorf("no nostr relays configured")
	}
	events := v.fetch(ctx, v.relays, nostr.Filters{nostr.Filter{
		Kinds:   []int{1},
		Authors: []string{pubkey},
		Limit:   50,
	}}, v.timeout)
	challenge := Challenge(address)
	for _, event := range events {
		if event.PubKey != pubkey || event.Kind != 1 || !strings.Contains(event.Content, challenge) {
			continue
		}
		ok, err := event.CheckSignature()
		if err != nil {
			library.LogCLI(fmt.Sprintf("nostr verification event %s: %s", event.ID, err), 3)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// PageVerifier fetches a public profile page built from a URL template and requires the
// challenge to appear in it.
type PageVerifier struct {
	template string
	client   *http.Client
}

func NewPageVerifier(template string, client *http.Client) *PageVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &PageVerifier{template: template, client: client}
}

func (v *PageVerifier) Verify(ctx context.Context, address library.Account, identifier string) (bool, error) {
	u := fmt.Sprintf(v.template, url.PathEscape(strings.TrimPrefix(identifier, "@")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(body), Challenge(address)), nil
}

// StaticVerifier returns a fixed answer, optionally after a delay.
type StaticVerifier struct {
	Result bool
	Err    error
	Delay  time.Duration
}

func (v StaticVerifier) Verify(ctx context.Context, _ library.Account, _ string) (bool, error) {
	if v.Delay > 0 {
		select {
		case <-time.After(v.Delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return v.Result, v.Err
}

// DefaultVerifiers builds the production verifier set from settings.
func DefaultVerifiers(settings actors.Settings, client *http.Client) Verifiers {
	v := Verifiers{
		library.GitHub: NewGitHubVerifier(settings.GitHubAPI, settings.GitHubToken, client),
		library.Nostr:  NewNostrVerifier(settings.NostrRelays, settings.SourceTimeout, nil),
	}
	for _, source := range []library.Source{library.Twitter, library.LinkedIn, library.StackOverflow} {
		if template, ok := settings.VerifyPages[source]; ok && template != "" {
			v[source] = NewPageVerifier(template, client)
		}
	}
	return v
}
