package store

import (
	"context"
	"fmt"

	"github.com/roach88/attest/internal/model"
)

// CreateSnapshot inserts a snapshot, or returns the already-stored row when
// a concurrent run of the same checklist got there first.
//
// This is the "create or get existing" primitive the engine relies on: the
// caller has already confirmed the name is absent from its working copy, but
// another run may have materialized it in between. The conflicting insert is
// a silent no-op and the re-read returns whatever won - including its stored
// value, which may differ from the value this run observed.
func (s *Store) CreateSnapshot(ctx context.Context, flowID int64, name, value string) (model.Snapshot, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (flow_id, name, value) VALUES (?, ?, ?)
		ON CONFLICT (flow_id, name) DO NOTHING
	`, flowID, name, value)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("create snapshot: %w", err)
		}
		return model.Snapshot{ID: id, FlowID: flowID, Name: name, Value: value}, nil
	}

	return s.snapshotByName(ctx, flowID, name)
}

// snapshotByName reads one snapshot by its merge key (flow_id, name).
func (s *Store) snapshotByName(ctx context.Context, flowID int64, name string) (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, flow_id, name, value FROM snapshots WHERE flow_id = ? AND name = ?`,
		flowID, name,
	).Scan(&snap.ID, &snap.FlowID, &snap.Name, &snap.Value)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("find snapshot: %w", err)
	}
	return snap, nil
}

// SnapshotsByFlow returns a flow's snapshots in insertion order (id ASC).
// Returns an empty slice, not nil, when the flow has no snapshots.
func (s *Store) SnapshotsByFlow(ctx context.Context, flowID int64) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, flow_id, name, value FROM snapshots WHERE flow_id = ? ORDER BY id ASC`,
		flowID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []model.Snapshot{}
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.ID, &snap.FlowID, &snap.Name, &snap.Value); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// SeedSnapshot inserts a snapshot by (checklist, flow name, snapshot name)
// only if absent. Used by the out-of-band seeding endpoint to fill gaps
// before a run; it never overwrites an existing value, and it is a silent
// no-op when the flow name is unknown for the checklist.
func (s *Store) SeedSnapshot(ctx context.Context, checklistID int64, flowName, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (flow_id, name, value)
		SELECT id, ?, ? FROM flows WHERE checklist_id = ? AND name = ?
		ON CONFLICT (flow_id, name) DO NOTHING
	`, name, value, checklistID, flowName)
	if err != nil {
		return fmt.Errorf("seed snapshot: %w", err)
	}
	return nil
}
