package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tOgg1/nostrfeed/internal/models"
)

// Session is the mutable state carried between runs.
type Session struct {
	// LastCheckpoint is the unix time the last successful fetch started.
	LastCheckpoint *int64 `yaml:"last_checkpoint,omitempty"`
	// Contacts are identities discovered from the user's follow list.
	Contacts []models.Contact `yaml:"contacts,omitempty"`
	// UpdatedAt is when the session was last saved.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// HasCheckpoint reports whether any fetch has completed before.
func (s *Session) HasCheckpoint() bool {
	return s.LastCheckpoint != nil
}

// Checkpoint returns the lower bound for the next fetch: the stored
// checkpoint, or now minus lookback when none exists.
func (s *Session) Checkpoint(now time.Time, lookback time.Duration) int64 {
	if s.LastCheckpoint != nil {
		return *s.LastCheckpoint
	}
	return now.Add(-lookback).Unix()
}

// Advance moves the checkpoint to at. It never moves backwards.
func (s *Session) Advance(at time.Time) {
	ts := at.Unix()
	if s.LastCheckpoint != nil && *s.LastCheckpoint > ts {
		return
	}
	s.LastCheckpoint = &ts
}

// SetContacts replaces the discovered contact list.
func (s *Session) SetContacts(contacts []models.Contact) {
	s.Contacts = append([]models.Contact(nil), contacts...)
}

// SessionStore manages loading and saving the session file.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a session store at path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// DefaultSessionStore returns a store at session.yaml inside dir, or inside
// the default config directory when dir is empty.
func DefaultSessionStore(dir string) (*SessionStore, error) {
	if dir == "" {
		var err error
		dir, err = DefaultConfigDir()
		if err != nil {
			return nil, err
		}
	}
	return NewSessionStore(filepath.Join(dir, "session.yaml")), nil
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session from disk.
// Returns an empty session if the file doesn't exist.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := &Session{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("%w: session file: %v", models.ErrParse, err)
	}

	return session, nil
}

// Save writes the session to disk through a temp file and rename.
func (s *SessionStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create session directory: %v", models.ErrPersistence, err)
	}

	session.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: serialize session: %v", models.ErrPersistence, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: write session file: %v", models.ErrPersistence, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace session file: %v", models.ErrPersistence, err)
	}

	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove session file: %v", models.ErrPersistence, err)
	}
	return nil
}
