package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kafaat/sahool-intel/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteConfig holds SQLite cache configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// TTL is the write-time expiry for entries.
	TTL time.Duration

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int
}

// SQLite is a durable TTL cache backed by a SQLite database. Values are
// stored as JSON. It implements the same Get/Set/Delete contract as Memory:
// storage errors degrade to cache misses and are logged, never surfaced, so
// callers can treat the cache as non-blocking.
type SQLite[V any] struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	log *telemetry.Logger
}

// NewSQLite opens (and migrates) the cache database at cfg.Path.
func NewSQLite[V any](ctx context.Context, cfg SQLiteConfig, log *telemetry.Logger) (*SQLite[V], error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache database path is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if log == nil {
		log = telemetry.NewNopLogger()
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite[V]{
		db:  db,
		ttl: cfg.TTL,
		now: time.Now,
		log: log.NewComponentLogger("cache"),
	}, nil
}

// migrateSchema applies the embedded schema migrations.
func migrateSchema(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run cache migrations: %w", err)
	}

	return nil
}

// Get returns the cached value for key. Absent, expired, or unreadable
// entries are misses; expired entries are removed.
func (s *SQLite[V]) Get(key string) (V, bool) {
	var zero V

	var raw []byte
	var expiresAt int64
	err := s.db.QueryRow(
		"SELECT value, expires_at FROM cache_entries WHERE key = ?", key,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return zero, false
	}

	if s.now().Unix() > expiresAt {
		s.Delete(key)
		return zero, false
	}

	var value V
	if err := json.Unmarshal(raw, &value); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache entry corrupt, dropping")
		s.Delete(key)
		return zero, false
	}
	return value, true
}

// Set stores a value under key with the TTL applied at write time. Write
// failures are logged and otherwise ignored.
func (s *SQLite[V]) Set(key string, value V) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}

	_, err = s.db.Exec(
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, raw, s.now().Add(s.ttl).Unix(),
	)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// Delete removes a key. Failures are logged and otherwise ignored.
func (s *SQLite[V]) Delete(key string) {
	if _, err := s.db.Exec("DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache delete failed")
	}
}

// Close releases the underlying database.
func (s *SQLite[V]) Close() error {
	return s.db.Close()
}
