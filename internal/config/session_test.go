package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/nostrfeed/internal/models"
)

func TestSessionCheckpointDefault(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := &Session{}

	require.False(t, s.HasCheckpoint())
	require.Equal(t, now.Add(-7*24*time.Hour).Unix(), s.Checkpoint(now, 7*24*time.Hour))

	s.Advance(now)
	require.True(t, s.HasCheckpoint())
	require.Equal(t, now.Unix(), s.Checkpoint(now.Add(time.Hour), time.Hour))
}

func TestSessionAdvanceNeverMovesBack(t *testing.T) {
	s := &Session{}
	s.Advance(time.Unix(200, 0))
	s.Advance(time.Unix(100, 0))
	require.Equal(t, int64(200), *s.LastCheckpoint)
}

func TestSessionStore_LoadMissing(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.yaml"))

	s, err := store.Load()
	require.NoError(t, err)
	require.False(t, s.HasCheckpoint())
	require.Empty(t, s.Contacts)
}

func TestSessionStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := DefaultSessionStore(filepath.Join(dir, "nested"))
	require.NoError(t, err)

	id, err := models.ParseIdentity("3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d")
	require.NoError(t, err)

	s := &Session{}
	s.Advance(time.Unix(1_700_000_000, 0))
	s.SetContacts([]models.Contact{models.NewContact(id, "fiatjaf")})
	require.NoError(t, store.Save(s))

	_, err = os.Stat(store.Path() + ".tmp")
	require.True(t, os.IsNotExist(err))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000), *loaded.LastCheckpoint)
	require.Equal(t, []models.Contact{{Identity: id, DisplayName: "fiatjaf"}}, loaded.Contacts)
	require.False(t, loaded.UpdatedAt.IsZero())

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
}

func TestSessionStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("last_checkpoint: [not, a, number"), 0o600))

	_, err := NewSessionStore(path).Load()
	require.ErrorIs(t, err, models.ErrParse)
}
