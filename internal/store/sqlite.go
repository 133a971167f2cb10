// Package store provides storage backends for Simsar.
//
// This file implements an SQLite-backed session store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/Simsar/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

var sqliteQueries = sessionQueries{
	insert:  `INSERT INTO sessions (id, version, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
	get:     `SELECT version, data FROM sessions WHERE id = ?`,
	update:  `UPDATE sessions SET data = ?, updated_at = ?, version = version + 1 WHERE id = ? AND version = ?`,
	exists:  `SELECT COUNT(*) FROM sessions WHERE id = ?`,
	delete:  `DELETE FROM sessions WHERE id = ?`,
	backend: "SQLiteStore",
}

// SQLiteStore persists sessions in a local SQLite file.
type SQLiteStore struct {
	db       *sql.DB
	sessions sqlSessions
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY between concurrent sessions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db, sessions: sqlSessions{db: db, q: sqliteQueries}}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, snap *models.SessionSnapshot) error {
	return s.sessions.create(ctx, snap)
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	return s.sessions.get(ctx, id)
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, snap *models.SessionSnapshot) error {
	return s.sessions.update(ctx, snap)
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.sessions.remove(ctx, id)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}
