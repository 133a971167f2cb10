// Package store provides storage backends for Simsar.
//
// This file implements a PostgreSQL-backed session store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/Simsar/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

var postgresQueries = sessionQueries{
	insert:  `INSERT INTO sessions (id, version, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	get:     `SELECT version, data FROM sessions WHERE id = $1`,
	update:  `UPDATE sessions SET data = $1, updated_at = $2, version = version + 1 WHERE id = $3 AND version = $4`,
	exists:  `SELECT COUNT(*) FROM sessions WHERE id = $1`,
	delete:  `DELETE FROM sessions WHERE id = $1`,
	backend: "PostgresStore",
}

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db       *sql.DB
	sessions sqlSessions
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.PostgresDSN != "")
	dsn := cfg.PostgresDSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("Postgres ping successful")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db, sessions: sqlSessions{db: db, q: postgresQueries}}, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, snap *models.SessionSnapshot) error {
	return s.sessions.create(ctx, snap)
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	return s.sessions.get(ctx, id)
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, snap *models.SessionSnapshot) error {
	return s.sessions.update(ctx, snap)
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return s.sessions.remove(ctx, id)
}

// Close closes the Postgres connection pool.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
