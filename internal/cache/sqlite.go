package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps posts in a SQLite database. The id column is unique and
// inserts skip existing ids, so the first stored version wins.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations. A database that cannot be read is moved aside to
// path+".corrupt" and recreated empty.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache directory: %v", models.ErrPersistence, err)
	}
	logger := logging.Component("cache")

	db, err := openSQLiteDB(ctx, path)
	if err != nil {
		if !isCorrupt(err) {
			return nil, err
		}
		logger.Warn().Err(err).Str("path", path).Msg("cache database is corrupt, starting empty")
		if mvErr := moveAside(path); mvErr != nil {
			return nil, fmt.Errorf("%w: set aside corrupt cache: %v", models.ErrPersistence, mvErr)
		}
		if db, err = openSQLiteDB(ctx, path); err != nil {
			return nil, err
		}
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

func openSQLiteDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open cache database: %v", models.ErrPersistence, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: connect cache database: %v", models.ErrPersistence, err)
	}

	var check string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&check); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: check cache database: %v", models.ErrPersistence, err)
	}
	if check != "ok" {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w: %s", models.ErrPersistence, errCorrupt, check)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var errCorrupt = errors.New("cache database failed integrity check")

// isCorrupt reports whether err means the file is not a usable database, as
// opposed to being locked or unreachable.
func isCorrupt(err error) bool {
	if errors.Is(err, errCorrupt) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not a database") || strings.Contains(msg, "malformed")
}

// moveAside renames the database to path+".corrupt" and drops its WAL files.
func moveAside(path string) error {
	if err := os.Rename(path, path+".corrupt"); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: migration source: %v", models.ErrPersistence, err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: migration driver: %v", models.ErrPersistence, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("%w: create migrator: %v", models.ErrPersistence, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: run migrations: %v", models.ErrPersistence, err)
	}
	return nil
}

// Load implements Store. Rows with undecodable list columns are skipped.
func (s *SQLiteStore) Load(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user, author, timestamp, datetime, content, root_id, reply_id, mentions, participants
		FROM posts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: query cache: %v", models.ErrPersistence, err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var (
			p                      models.Post
			author                 string
			rootID, replyID        sql.NullString
			mentions, participants string
		)
		if err := rows.Scan(&p.ID, &p.AuthorDisplay, &author, &p.AuthoredAt, &p.DisplayTime, &p.Content,
			&rootID, &replyID, &mentions, &participants); err != nil {
			return nil, fmt.Errorf("%w: scan cache row: %v", models.ErrPersistence, err)
		}
		p.Author = models.Identity(author)
		if rootID.Valid {
			p.RootID = models.StringPtr(rootID.String)
		}
		if replyID.Valid {
			p.ReplyID = models.StringPtr(replyID.String)
		}
		if err := json.Unmarshal([]byte(mentions), &p.Mentions); err != nil {
			s.logger.Warn().Str("id", p.ID).Err(err).Msg("skipping cached post with corrupt mentions")
			continue
		}
		if err := json.Unmarshal([]byte(participants), &p.Participants); err != nil {
			s.logger.Warn().Str("id", p.ID).Err(err).Msg("skipping cached post with corrupt participants")
			continue
		}
		p.Normalize()
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read cache rows: %v", models.ErrPersistence, err)
	}
	return posts, nil
}

// MergeAndSave implements Store.
func (s *SQLiteStore) MergeAndSave(ctx context.Context, posts []models.Post) (int, error) {
	var added int
	err := retryBusy(ctx, busyAttempts, busyBackoff, func() error {
		added = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO posts (id, user, author, timestamp, datetime, content, root_id, reply_id, mentions, participants)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range posts {
			if p.ID == "" {
				continue
			}
			p.Normalize()
			mentions, err := json.Marshal(p.Mentions)
			if err != nil {
				return err
			}
			participants, err := json.Marshal(p.Participants)
			if err != nil {
				return err
			}
			res, err := stmt.ExecContext(ctx, p.ID, p.AuthorDisplay, p.Author.Hex(), p.AuthoredAt, p.DisplayTime,
				p.Content, nullable(p.RootID), nullable(p.ReplyID), string(mentions), string(participants))
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("%w: save cache: %v", models.ErrPersistence, err)
	}
	if added > 0 {
		s.logger.Debug().Int("added", added).Msg("cache saved")
	}
	return added, nil
}

// IsEmpty implements Store.
func (s *SQLiteStore) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posts`).Scan(&n); err != nil {
		return false, fmt.Errorf("%w: count cache: %v", models.ErrPersistence, err)
	}
	return n == 0, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
