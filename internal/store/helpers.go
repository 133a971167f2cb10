package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/Simsar/internal/models"
)

func encodeSnapshot(snap *models.SessionSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", snap.ID, err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &snap, nil
}

// sessionQueries are the dialect-specific statements of a SQL backend.
type sessionQueries struct {
	insert  string // id, version, data, created_at, updated_at
	get     string // id -> version, data
	update  string // data, updated_at, id, version
	exists  string // id
	delete  string // id
	backend string
}

// sqlSessions implements the session operations shared by the SQL backends.
type sqlSessions struct {
	db *sql.DB
	q  sessionQueries
}

func (s sqlSessions) create(ctx context.Context, snap *models.SessionSnapshot) error {
	if err := validateID(snap.ID); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.q.exists, snap.ID).Scan(&n); err != nil {
		slog.Error(s.q.backend+" Create existence check failed", "error", err, "id", snap.ID)
		return fmt.Errorf("failed to check session %s: %w", snap.ID, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, snap.ID)
	}
	stamp(snap)
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.q.insert, snap.ID, snap.Version, string(data), snap.CreatedAt, snap.UpdatedAt); err != nil {
		slog.Error(s.q.backend+" Create failed", "error", err, "id", snap.ID)
		return fmt.Errorf("failed to insert session %s: %w", snap.ID, err)
	}
	slog.Debug(s.q.backend+" Create succeeded", "id", snap.ID)
	return nil
}

func (s sqlSessions) get(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	var version int64
	var data string
	err := s.db.QueryRowContext(ctx, s.q.get, id).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug(s.q.backend+" Get not found", "id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error(s.q.backend+" Get failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	snap, err := decodeSnapshot([]byte(data))
	if err != nil {
		return nil, err
	}
	snap.Version = version
	return snap, nil
}

func (s sqlSessions) update(ctx context.Context, snap *models.SessionSnapshot) error {
	next := *snap
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	data, err := encodeSnapshot(&next)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q.update, string(data), next.UpdatedAt, snap.ID, snap.Version)
	if err != nil {
		slog.Error(s.q.backend+" Update failed", "error", err, "id", snap.ID)
		return fmt.Errorf("failed to update session %s: %w", snap.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", snap.ID, err)
	}
	if affected == 0 {
		var n int
		if err := s.db.QueryRowContext(ctx, s.q.exists, snap.ID).Scan(&n); err != nil {
			return fmt.Errorf("failed to check session %s: %w", snap.ID, err)
		}
		if n == 0 {
			return wrapNotFound(snap.ID)
		}
		return fmt.Errorf("%w: %s at version %d", ErrVersionConflict, snap.ID, snap.Version)
	}
	*snap = next
	slog.Debug(s.q.backend+" Update succeeded", "id", snap.ID, "version", snap.Version)
	return nil
}

func (s sqlSessions) remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, id); err != nil {
		slog.Error(s.q.backend+" Delete failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	slog.Debug(s.q.backend+" Delete succeeded", "id", id)
	return nil
}
