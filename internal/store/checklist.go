package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/attest/internal/model"
)

// CreateChecklist inserts a checklist owned by the given API key.
func (s *Store) CreateChecklist(ctx context.Context, apiKeyID int64, workerOrigin string) (model.Checklist, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checklists (api_key_id, worker_origin) VALUES (?, ?)`,
		apiKeyID, workerOrigin,
	)
	if err != nil {
		return model.Checklist{}, fmt.Errorf("create checklist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Checklist{}, fmt.Errorf("create checklist: %w", err)
	}
	return model.Checklist{ID: id, APIKeyID: apiKeyID, WorkerOrigin: workerOrigin}, nil
}

// UpdateChecklist persists a changed worker origin.
func (s *Store) UpdateChecklist(ctx context.Context, c model.Checklist) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE checklists SET worker_origin = ? WHERE id = ?`,
		c.WorkerOrigin, c.ID,
	); err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}
	return nil
}

// Checklist finds a checklist by id, scoped to the given API key.
// A checklist owned by a different key is ErrNotFound, not a distinct
// authorization error - callers cannot probe for other keys' ids.
func (s *Store) Checklist(ctx context.Context, id, apiKeyID int64) (model.Checklist, error) {
	var c model.Checklist
	err := s.db.QueryRowContext(ctx,
		`SELECT id, api_key_id, worker_origin FROM checklists WHERE id = ? AND api_key_id = ?`,
		id, apiKeyID,
	).Scan(&c.ID, &c.APIKeyID, &c.WorkerOrigin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Checklist{}, ErrNotFound
	}
	if err != nil {
		return model.Checklist{}, fmt.Errorf("find checklist: %w", err)
	}
	return c, nil
}

// ChecklistByID finds a checklist by id alone. Used by the scheduler, which
// acts on behalf of the owning key rather than an inbound request.
func (s *Store) ChecklistByID(ctx context.Context, id int64) (model.Checklist, error) {
	var c model.Checklist
	err := s.db.QueryRowContext(ctx,
		`SELECT id, api_key_id, worker_origin FROM checklists WHERE id = ?`, id,
	).Scan(&c.ID, &c.APIKeyID, &c.WorkerOrigin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Checklist{}, ErrNotFound
	}
	if err != nil {
		return model.Checklist{}, fmt.Errorf("find checklist: %w", err)
	}
	return c, nil
}

// Checklists lists all checklists owned by an API key, oldest first.
func (s *Store) Checklists(ctx context.Context, apiKeyID int64) ([]model.Checklist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, api_key_id, worker_origin FROM checklists WHERE api_key_id = ? ORDER BY id ASC`,
		apiKeyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	defer rows.Close()

	checklists := []model.Checklist{}
	for rows.Next() {
		var c model.Checklist
		if err := rows.Scan(&c.ID, &c.APIKeyID, &c.WorkerOrigin); err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}
		checklists = append(checklists, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklists: %w", err)
	}
	return checklists, nil
}

// DeleteChecklist removes a checklist and cascades to its flows, snapshots,
// and schedules, all in one transaction.
func (s *Store) DeleteChecklist(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	defer tx.Rollback()

	if err := deleteChecklistTx(ctx, tx, id); err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}

// deleteChecklistTx cascades one checklist delete inside an open transaction.
func deleteChecklistTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE flow_id IN (SELECT id FROM flows WHERE checklist_id = ?)`, id,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM flows WHERE checklist_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE checklist_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checklists WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}

// deleteChecklistsByAPIKey cascades every checklist owned by a key.
func deleteChecklistsByAPIKey(ctx context.Context, tx *sql.Tx, apiKeyID int64) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM checklists WHERE api_key_id = ?`, apiKeyID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range ids {
		if err := deleteChecklistTx(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}
