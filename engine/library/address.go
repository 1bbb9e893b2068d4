package library

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeAddress validates an EVM style address (0x + 40 hex digits) and returns it in lower case.
func NormalizeAddress(address string) (Account, error) {
	a := strings.ToLower(strings.TrimSpace(address))
	if len(a) != 42 || !strings.HasPrefix(a, "0x") {
		return "", fmt.Errorf("%q: %w", address, ErrInvalidAddress)
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", fmt.Errorf("%q: %w", address, ErrInvalidAddress)
	}
	return a, nil
}

// IsSha256Hex reports whether id looks like a hex encoded sha256 digest.
func IsSha256Hex(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
