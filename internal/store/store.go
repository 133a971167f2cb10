// Package store provides storage backends for Simsar session snapshots.
//
// It includes an in-memory store plus SQLite, PostgreSQL and Redis backends. Every
// backend versions snapshots for optimistic locking.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/Simsar/internal/models"
)

// Sentinel errors shared by every backend.
var (
	ErrNotFound        = errors.New("session not found")
	ErrVersionConflict = errors.New("session version conflict")
	ErrAlreadyExists   = errors.New("session already exists")
)

// DSN types returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeRedis    = "redis"
	DSNTypeSQLite   = "sqlite"
)

// DefaultSessionTTL is how long an idle session survives in Redis.
const DefaultSessionTTL = 24 * time.Hour

// Store persists session snapshots.
type Store interface {
	// Create stores a new snapshot with Version 1. It fails with ErrAlreadyExists when
	// the ID is taken.
	Create(ctx context.Context, snap *models.SessionSnapshot) error
	// Get returns nil, nil when the session does not exist.
	Get(ctx context.Context, id string) (*models.SessionSnapshot, error)
	// Update replaces a snapshot whose Version matches the stored one, then increments
	// Version and UpdatedAt on snap.
	Update(ctx context.Context, snap *models.SessionSnapshot) error
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Opts holds backend selection for Open.
type Opts struct {
	DSN         string
	PostgresDSN string
	RedisURL    string
	TTL         time.Duration
}

// Option configures Open.
type Option func(*Opts)

// WithSQLiteDSN selects the SQLite backend with a database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN selects the PostgreSQL backend.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.PostgresDSN = dsn }
}

// WithRedisURL selects the Redis backend.
func WithRedisURL(url string) Option {
	return func(o *Opts) { o.RedisURL = url }
}

// WithTTL sets the idle expiry used by the Redis backend.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// Open creates the backend selected by opts: Redis, then PostgreSQL, then SQLite, and
// the in-memory store when nothing is configured.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.RedisURL != "":
		slog.Debug("store.Open: using Redis backend")
		return NewRedisStore(opts...)
	case cfg.PostgresDSN != "":
		slog.Debug("store.Open: using PostgreSQL backend")
		return NewPostgresStore(opts...)
	case cfg.DSN != "":
		slog.Debug("store.Open: using SQLite backend", "path", cfg.DSN)
		return NewSQLiteStore(opts...)
	}
	slog.Debug("store.Open: no backend configured, using in-memory store")
	return NewInMemoryStore(), nil
}

// DetectDSNType classifies a connection string as postgres, redis or sqlite. Anything
// that is not a recognized URL or key/value DSN is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DSNTypePostgres
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return DSNTypeRedis
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return models.ErrEmptySessionID
	}
	return nil
}

// stamp prepares a snapshot for its first write.
func stamp(snap *models.SessionSnapshot) {
	now := time.Now().UTC()
	snap.CreatedAt = now
	snap.UpdatedAt = now
	snap.Version = 1
}

func wrapNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
