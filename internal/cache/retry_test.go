package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("constraint failed")
	err := retryBusy(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestRetryBusySucceedsFirstTry(t *testing.T) {
	calls := 0
	require.NoError(t, retryBusy(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	}))
	require.Equal(t, 1, calls)
	require.False(t, isBusy(errors.New("database is locked")), "only typed driver errors count")
}
