package source

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/tOgg1/nostrfeed/internal/models"
)

// ParseSecretKey accepts an nsec bech32 string or 64-char hex and returns the
// hex secret key with its public identity.
func ParseSecretKey(raw string) (string, models.Identity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: secret key is empty", models.ErrConfigMissing)
	}

	if strings.HasPrefix(trimmed, "nsec1") {
		prefix, value, err := nip19.Decode(trimmed)
		if err != nil {
			return "", "", fmt.Errorf("%w: decode secret key: %v", models.ErrParse, err)
		}
		sk, ok := value.(string)
		if prefix != "nsec" || !ok {
			return "", "", fmt.Errorf("%w: not an nsec key", models.ErrParse)
		}
		trimmed = sk
	}

	trimmed = strings.ToLower(trimmed)
	if len(trimmed) != 64 {
		return "", "", fmt.Errorf("%w: secret key must be 64 hex chars", models.ErrParse)
	}
	if _, err := hex.DecodeString(trimmed); err != nil {
		return "", "", fmt.Errorf("%w: secret key is not hex", models.ErrParse)
	}

	pk, err := nostr.GetPublicKey(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("%w: derive public key: %v", models.ErrParse, err)
	}
	self, err := models.ParseIdentity(pk)
	if err != nil {
		return "", "", err
	}
	return trimmed, self, nil
}
