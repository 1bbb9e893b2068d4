package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/octo/gists":
			_ = json.NewEncoder(w).Encode([]map[string]string{{"description": "notes"}, {"description": "proof " + Challenge(addr)}})
		case "/users/other/gists":
			_ = json.NewEncoder(w).Encode([]map[string]string{{"description": "nothing here"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	v := NewGitHubVerifier(server.URL, "", server.Client())
	ok, err := v.Verify(context.Background(), addr, "octo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), addr, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Verify(context.Background(), addr, "missing")
	assert.Error(t, err)
}

func TestPageVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in/me" {
			fmt.Fprintf(w, "<html><p>bio: %s</p></html>", Challenge(addr))
			return
		}
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	v := NewPageVerifier(server.URL+"/in/%s", server.Client())
	ok, err := v.Verify(context.Background(), addr, "@me")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = v.Verify(context.Background(), addr, "someone")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNostrVerifier(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)

	signed := nostr.Event{Kind: 1, CreatedAt: nostr.Timestamp(time.Now().Unix()), Tags: nostr.Tags{}, Content: "hello " + Challenge(addr)}
	require.NoError(t, signed.Sign(sk))
	forged := signed
	forged.Content = "hello " + Challenge("0xbbb")

	fetcher := func(events ...nostr.Event) func(context.Context, []string, nostr.Filters, time.Duration) map[string]nostr.Event {
		return func(context.Context, []string, nostr.Filters, time.Duration) map[string]nostr.Event {
			out := map[string]nostr.Event{}
			for i, e := range events {
				out[fmt.Sprint(i)] = e
			}
			return out
		}
	}

	ok, err := NewNostrVerifier([]string{"wss://relay.test"}, time.Second, fetcher(signed)).Verify(context.Background(), addr, pk)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewNostrVerifier([]string{"wss://relay.test"}, time.Second, fetcher(forged)).Verify(context.Background(), "0xbbb", pk)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewNostrVerifier(nil, time.Second, fetcher()).Verify(context.Background(), addr, pk)
	assert.Error(t, err)
}
