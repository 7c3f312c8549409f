package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/attest/internal/model"
)

// CreateFlow inserts a flow, or returns the existing row when another run
// created it first. UNIQUE(checklist_id, name) makes the race benign: the
// insert is a silent no-op on conflict and the re-read picks up the winner.
func (s *Store) CreateFlow(ctx context.Context, checklistID int64, name string) (model.Flow, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO flows (checklist_id, name) VALUES (?, ?)
		ON CONFLICT (checklist_id, name) DO NOTHING
	`, checklistID, name)
	if err != nil {
		return model.Flow{}, fmt.Errorf("create flow: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return model.Flow{}, fmt.Errorf("create flow: %w", err)
		}
		return model.Flow{ID: id, Name: name}, nil
	}

	return s.flowByName(ctx, checklistID, name)
}

// flowByName resolves a flow by its merge key (checklist_id, name).
func (s *Store) flowByName(ctx context.Context, checklistID int64, name string) (model.Flow, error) {
	var f model.Flow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM flows WHERE checklist_id = ? AND name = ?`,
		checklistID, name,
	).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Flow{}, ErrNotFound
	}
	if err != nil {
		return model.Flow{}, fmt.Errorf("find flow: %w", err)
	}
	return f, nil
}

// FlowsByChecklist returns a checklist's flows in insertion order.
func (s *Store) FlowsByChecklist(ctx context.Context, checklistID int64) ([]model.Flow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM flows WHERE checklist_id = ? ORDER BY id ASC`,
		checklistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	flows := []model.Flow{}
	for rows.Next() {
		var f model.Flow
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return flows, nil
}
