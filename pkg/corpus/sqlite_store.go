package corpus

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps corpora in a single SQLite database, one row per key
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable WAL")
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS corpus_cache (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		subjects INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(key Key) (*Corpus, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM corpus_cache WHERE key = ?", key.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Mark(errors.Newf("no cache entry for %s", key), ErrCacheMiss)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query cache entry %s", key)
	}

	c, err := Decode(key, payload)
	if err != nil {
		return nil, corrupt(key, err)
	}
	return c, nil
}

func (s *SQLiteStore) Save(key Key, c *Corpus) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode corpus")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	_, err = tx.Exec(`
		INSERT INTO corpus_cache (key, payload, subjects, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
			subjects = excluded.subjects, created_at = excluded.created_at`,
		key.String(), payload, c.Len(), time.Now().UTC())
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to write cache entry")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit cache entry")
	}
	return nil
}

func (s *SQLiteStore) Exists(key Key) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(1) FROM corpus_cache WHERE key = ?", key.String()).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "failed to query cache entry")
	}
	return n > 0, nil
}

func (s *SQLiteStore) Delete(key Key) error {
	if _, err := s.db.Exec("DELETE FROM corpus_cache WHERE key = ?", key.String()); err != nil {
		return errors.Wrap(err, "failed to delete cache entry")
	}
	return nil
}

// Keys lists stored keys in key order
func (s *SQLiteStore) Keys() ([]Key, error) {
	rows, err := s.db.Query("SELECT key FROM corpus_cache ORDER BY key")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cache entries")
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan cache key")
		}
		k, err := ParseKey(name)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// putRaw stores an arbitrary payload under key; used to exercise corrupt-entry handling
func (s *SQLiteStore) putRaw(key Key, payload []byte) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO corpus_cache (key, payload, subjects, created_at) VALUES (?, ?, 0, ?)",
		key.String(), payload, time.Now().UTC())
	return err
}
