package library

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr/nip19"
)

// NostrPubkey accepts a hex pubkey or an npub and returns the hex form.
func NostrPubkey(identifier string) (string, error) {
	id := strings.TrimSpace(identifier)
	if strings.HasPrefix(id, "npub") {
		prefix, value, err := nip19.Decode(id)
		if err != nil {
			return "", err
		}
		pk, ok := value.(string)
		if prefix != "npub" || !ok {
			return "", fmt.Errorf("%s is not an npub", identifier)
		}
		id = pk
	}
	if len(id) != 64 {
		return "", fmt.Errorf("invalid nostr pubkey %q", identifier)
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", fmt.Errorf("invalid nostr pubkey %q", identifier)
	}
	return strings.ToLower(id), nil
}
