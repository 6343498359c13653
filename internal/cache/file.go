package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/models"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps posts as a JSON array in a single file. Merges are
// serialized in-process by a mutex and across processes by a lock file.
type FileStore struct {
	path   string
	mu     sync.Mutex
	lock   *flock.Flock
	logger zerolog.Logger
}

// NewFileStore creates a store at path. Nothing is touched until first use.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.Component("cache"),
	}
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) ([]models.Post, error) {
	posts, _, err := s.read()
	return posts, err
}

// read returns the cached posts and whether the file held a valid snapshot.
func (s *FileStore) read() ([]models.Post, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Post{}, false, nil
		}
		return nil, false, fmt.Errorf("%w: read cache: %v", models.ErrPersistence, err)
	}

	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("cache file is corrupt, starting empty")
		return []models.Post{}, false, nil
	}
	for i := range posts {
		posts[i].Normalize()
	}
	return posts, true, nil
}

// MergeAndSave implements Store.
func (s *FileStore) MergeAndSave(ctx context.Context, posts []models.Post) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return 0, fmt.Errorf("%w: create cache directory: %v", models.ErrPersistence, err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return 0, fmt.Errorf("%w: lock cache: %v", models.ErrPersistence, err)
	}
	defer func() { _ = s.lock.Unlock() }()

	existing, valid, err := s.read()
	if err != nil {
		return 0, err
	}

	merged, added := merge(existing, posts)
	if added == 0 && valid {
		return 0, nil
	}

	if err := s.write(merged); err != nil {
		return 0, err
	}
	s.logger.Debug().Int("added", added).Int("total", len(merged)).Msg("cache saved")
	return added, nil
}

func (s *FileStore) write(posts []models.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("%w: encode cache: %v", models.ErrPersistence, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write cache: %v", models.ErrPersistence, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace cache: %v", models.ErrPersistence, err)
	}
	return nil
}

// IsEmpty implements Store.
func (s *FileStore) IsEmpty(ctx context.Context) (bool, error) {
	posts, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return len(posts) == 0, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
