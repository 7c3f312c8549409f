package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/attest/internal/model"
)

// CreateAPIKey mints a new API key and persists it.
// Keys are UUIDv7 with the hyphens stripped: time-sortable and unguessable.
func (s *Store) CreateAPIKey(ctx context.Context) (model.APIKey, error) {
	key := strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")

	res, err := s.db.ExecContext(ctx, `INSERT INTO api_keys (key) VALUES (?)`, key)
	if err != nil {
		return model.APIKey{}, fmt.Errorf("create api key: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.APIKey{}, fmt.Errorf("create api key: %w", err)
	}

	return model.APIKey{ID: id, Key: key}, nil
}

// APIKeyByKey resolves a key string to its row.
// Returns ErrNotFound for unknown keys.
func (s *Store) APIKeyByKey(ctx context.Context, key string) (model.APIKey, error) {
	var k model.APIKey
	err := s.db.QueryRowContext(ctx,
		`SELECT id, key FROM api_keys WHERE key = ?`, key,
	).Scan(&k.ID, &k.Key)
	if errors.Is(err, sql.ErrNoRows) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, fmt.Errorf("find api key: %w", err)
	}
	return k, nil
}

// DeleteAPIKey removes a key and everything it owns: webhooks, checklists,
// and transitively each checklist's flows, snapshots, and schedules.
// The whole cascade runs in one transaction.
func (s *Store) DeleteAPIKey(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	defer tx.Rollback()

	if err := deleteChecklistsByAPIKey(ctx, tx, id); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM webhooks WHERE api_key_id = ?`, id); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}
