package actors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storedRelay answers every REQ with its stored events followed by EOSE, then stays open.
func storedRelay(t *testing.T, stored ...nostr.Event) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msg, op, err := wsutil.ReadClientData(conn)
			if err != nil {
				return
			}
			if op != ws.OpText {
				continue
			}
			var req []json.RawMessage
			if json.Unmarshal(msg, &req) != nil || len(req) < 2 {
				continue
			}
			var label, subID string
			if json.Unmarshal(req[0], &label) != nil || label != "REQ" || json.Unmarshal(req[1], &subID) != nil {
				continue
			}
			for _, ev := range stored {
				out, _ := json.Marshal([]interface{}{"EVENT", subID, ev})
				if wsutil.WriteServerText(conn, out) != nil {
					return
				}
			}
			out, _ := json.Marshal([]interface{}{"EOSE", subID})
			if wsutil.WriteServerText(conn, out) != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func signedNote(t *testing.T, content string) (nostr.Event, string) {
	t.Helper()
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	ev := nostr.Event{
		PubKey:    pk,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      1,
		Tags:      nostr.Tags{},
		Content:   content,
	}
	require.NoError(t, ev.Sign(sk))
	return ev, pk
}

func TestFetchFromRelaysReturnsOnEndOfStoredEvents(t *testing.T) {
	note, pk := signedNote(t, "hello")
	url := storedRelay(t, note)

	start := time.Now()
	events := FetchFromRelays(context.Background(), []string{url},
		nostr.Filters{{Kinds: []int{1}, Authors: []string{pk}}}, 5*time.Second)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, "hello", events[note.ID].Content)
}

func TestFetchFromRelaysSkipsUnreachableRelay(t *testing.T) {
	note, pk := signedNote(t, "still here")
	url := storedRelay(t, note)

	events := FetchFromRelays(context.Background(), []string{"ws://127.0.0.1:1", url},
		nostr.Filters{{Kinds: []int{1}, Authors: []string{pk}}}, 2*time.Second)
	assert.Contains(t, events, note.ID)
}
