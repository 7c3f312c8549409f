package store

import (
	"context"
	"fmt"

	"github.com/roach88/attest/internal/model"
)

// CreateSchedule registers a cron schedule for a checklist.
// The cron expression is validated by the caller; the store treats it as an
// opaque string.
func (s *Store) CreateSchedule(ctx context.Context, checklistID int64, cronExpr string) (model.Schedule, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules (checklist_id, cron) VALUES (?, ?)`,
		checklistID, cronExpr,
	)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	return model.Schedule{ID: id, ChecklistID: checklistID, Cron: cronExpr}, nil
}

// DeleteSchedule removes one schedule, scoped to its checklist.
// Returns ErrNotFound when no such row exists.
func (s *Store) DeleteSchedule(ctx context.Context, id, checklistID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM schedules WHERE id = ? AND checklist_id = ?`,
		id, checklistID,
	)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Schedules lists a checklist's schedules in insertion order.
func (s *Store) Schedules(ctx context.Context, checklistID int64) ([]model.Schedule, error) {
	return s.querySchedules(ctx,
		`SELECT id, checklist_id, cron FROM schedules WHERE checklist_id = ? ORDER BY id ASC`,
		checklistID,
	)
}

// AllSchedules lists every schedule across all checklists, for scheduler sync.
func (s *Store) AllSchedules(ctx context.Context) ([]model.Schedule, error) {
	return s.querySchedules(ctx,
		`SELECT id, checklist_id, cron FROM schedules ORDER BY id ASC`,
	)
}

func (s *Store) querySchedules(ctx context.Context, query string, args ...any) ([]model.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := []model.Schedule{}
	for rows.Next() {
		var sc model.Schedule
		if err := rows.Scan(&sc.ID, &sc.ChecklistID, &sc.Cron); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}
