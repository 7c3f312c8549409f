// Package scheduler triggers checklist runs from cron schedules and
// notifies webhooks about the results.
//
// Schedules live in the store; Sync diffs the stored rows against the
// registered cron entries, so schedules created or deleted over the API are
// picked up without a restart. Each firing dispatches independently - the
// cron runner starts every job on its own goroutine - so one slow or broken
// worker cannot starve other checklists' runs.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/model"
	"github.com/roach88/attest/internal/store"
)

// DefaultRunTimeout bounds one scheduled run end-to-end.
const DefaultRunTimeout = 5 * time.Minute

// Scheduler owns the cron runner and keeps it in sync with stored schedules.
type Scheduler struct {
	store      *store.Store
	engine     *engine.Engine
	notifier   *Notifier
	cron       *cron.Cron
	log        *slog.Logger
	runTimeout time.Duration

	mu      sync.Mutex
	entries map[int64]scheduleEntry // schedule id -> registered cron entry
}

type scheduleEntry struct {
	id   cron.EntryID
	spec string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunTimeout overrides the per-run timeout.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.runTimeout = d
	}
}

// WithLogger overrides the scheduler's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		s.log = log
	}
}

// New creates a Scheduler. Call Sync to load schedules, then Start.
func New(st *store.Store, eng *engine.Engine, notifier *Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      st,
		engine:     eng,
		notifier:   notifier,
		cron:       cron.New(),
		log:        slog.Default(),
		runTimeout: DefaultRunTimeout,
		entries:    make(map[int64]scheduleEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync reconciles registered cron entries with the schedules table:
// new rows are added, deleted rows are removed, changed expressions are
// re-registered. Safe to call while the runner is started.
func (s *Scheduler) Sync(ctx context.Context) error {
	stored, err := s.store.AllSchedules(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[int64]model.Schedule, len(stored))
	for _, sc := range stored {
		want[sc.ID] = sc
	}

	for id, entry := range s.entries {
		sc, keep := want[id]
		if keep && sc.Cron == entry.spec {
			continue
		}
		s.cron.Remove(entry.id)
		delete(s.entries, id)
	}

	for id, sc := range want {
		if _, registered := s.entries[id]; registered {
			continue
		}
		schedule := sc
		entryID, err := s.cron.AddFunc(schedule.Cron, func() {
			s.fire(schedule)
		})
		if err != nil {
			// Stored expressions are validated at creation; a bad row is
			// logged and skipped rather than failing the whole sync.
			s.log.Error("invalid stored cron expression",
				"schedule", id, "cron", schedule.Cron, "error", err)
			continue
		}
		s.entries[id] = scheduleEntry{id: entryID, spec: schedule.Cron}
	}

	s.log.Debug("schedules synced", "count", len(s.entries))
	return nil
}

// Start begins firing schedules. Entries added by later Syncs are picked up
// by the running scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts firing and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered schedules. For tests and
// diagnostics.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// fire executes one scheduled run. Failures are logged, never propagated:
// a broken worker must not affect other schedules.
func (s *Scheduler) fire(schedule model.Schedule) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	checklist, err := s.store.ChecklistByID(ctx, schedule.ChecklistID)
	if errors.Is(err, store.ErrNotFound) {
		// Checklist deleted since the last sync; the entry goes away on the
		// next Sync pass.
		s.log.Warn("scheduled checklist no longer exists",
			"schedule", schedule.ID, "checklist", schedule.ChecklistID)
		return
	}
	if err != nil {
		s.log.Error("load scheduled checklist",
			"schedule", schedule.ID, "checklist", schedule.ChecklistID, "error", err)
		return
	}

	flows, err := s.engine.Run(ctx, checklist)
	if err != nil {
		s.log.Warn("scheduled run failed",
			"schedule", schedule.ID, "checklist", checklist.ID, "error", err)
		return
	}

	s.log.Info("scheduled run complete",
		"schedule", schedule.ID, "checklist", checklist.ID, "flows", len(flows))

	if s.notifier != nil {
		s.notifier.RunCompleted(ctx, checklist, flows)
	}
}
