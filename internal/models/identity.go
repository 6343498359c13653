package models

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr/nip19"
)

// Identity is an author's public key in lowercase hex.
type Identity string

const identityHexLen = 64

// ParseIdentity accepts a 64-char hex public key or an npub bech32 string.
func ParseIdentity(raw string) (Identity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty identity", ErrParse)
	}

	if strings.HasPrefix(trimmed, "npub1") {
		prefix, value, err := nip19.Decode(trimmed)
		if err != nil {
			return "", fmt.Errorf("%w: decode %s: %v", ErrParse, trimmed, err)
		}
		pk, ok := value.(string)
		if prefix != "npub" || !ok {
			return "", fmt.Errorf("%w: %s is not a public key", ErrParse, trimmed)
		}
		trimmed = pk
	}

	lower := strings.ToLower(trimmed)
	if len(lower) != identityHexLen {
		return "", fmt.Errorf("%w: identity must be %d hex chars, got %d", ErrParse, identityHexLen, len(lower))
	}
	if _, err := hex.DecodeString(lower); err != nil {
		return "", fmt.Errorf("%w: identity is not hex: %v", ErrParse, err)
	}
	return Identity(lower), nil
}

// Hex returns the raw hex form used on the wire.
func (id Identity) Hex() string { return string(id) }

// String renders the canonical npub form, falling back to hex.
func (id Identity) String() string {
	if id == "" {
		return ""
	}
	npub, err := nip19.EncodePublicKey(string(id))
	if err != nil {
		return string(id)
	}
	return npub
}

// Short is a compact label for status lines.
func (id Identity) Short() string {
	s := id.String()
	if len(s) <= 16 {
		return s
	}
	return s[:10] + "…" + s[len(s)-4:]
}
