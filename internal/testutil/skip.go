package testutil

import (
	"os"
	"testing"
)

// RelayEnv names the variable holding a relay URL for live tests.
const RelayEnv = "NOSTRFEED_TEST_RELAY"

// RequireRelay returns the relay URL from NOSTRFEED_TEST_RELAY, or skips the
// test when it is unset or NOSTRFEED_TEST_SKIP_NETWORK is set.
func RequireRelay(t *testing.T) string {
	t.Helper()
	if os.Getenv("NOSTRFEED_TEST_SKIP_NETWORK") != "" {
		t.Skip("skipping network test: NOSTRFEED_TEST_SKIP_NETWORK is set")
	}
	url := os.Getenv(RelayEnv)
	if url == "" {
		t.Skipf("skipping network test: %s is not set", RelayEnv)
	}
	return url
}
