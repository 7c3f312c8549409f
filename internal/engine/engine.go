package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/attest/internal/model"
	"github.com/roach88/attest/internal/store"
)

// WorkerInvoker executes a checklist's flows against the worker under test.
// Implemented by worker.Client (production) and test fakes.
type WorkerInvoker interface {
	Run(ctx context.Context, origin string, flows []model.Flow) ([]model.Flow, error)
}

// Engine runs checklists: it ties the store, the worker client, and the
// reconciliation pass together for one run request.
//
// Thread-safety: Engine itself is stateless and safe for concurrent use.
// Concurrent runs of the same checklist are not serialized; the store's
// UNIQUE(flow_id, name) constraint guarantees at most one materialized
// snapshot per name, and the losing insert is absorbed.
type Engine struct {
	store  *store.Store
	worker WorkerInvoker
	log    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the engine's logger (defaults to slog.Default).
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an Engine.
func New(s *store.Store, w WorkerInvoker, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		worker: w,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one checklist run.
//
// Steps: load persisted flows with their snapshots, invoke the worker,
// reconcile the observed flows against stored state, and return the
// annotated flows in the worker's reported order.
//
// Worker failures propagate unchanged (see worker.IsUnavailable); nothing is
// persisted on that path. Flows present in storage but absent from the
// worker's response are left untouched and do not appear in the output.
func (e *Engine) Run(ctx context.Context, checklist model.Checklist) ([]model.Flow, error) {
	known, err := e.loadFlows(ctx, checklist.ID)
	if err != nil {
		return nil, err
	}

	e.log.Debug("invoking worker",
		"checklist", checklist.ID,
		"origin", checklist.WorkerOrigin,
		"flows", len(known))

	observed, err := e.worker.Run(ctx, checklist.WorkerOrigin, known)
	if err != nil {
		return nil, err
	}

	out := make([]model.Flow, 0, len(observed))
	for _, of := range observed {
		flow, err := e.reconcileFlow(ctx, checklist.ID, known, of)
		if err != nil {
			return nil, err
		}
		out = append(out, flow)
	}

	e.log.Info("run complete",
		"checklist", checklist.ID,
		"flows", len(out))
	return out, nil
}

// loadFlows builds the working copy: every persisted flow of the checklist
// with its stored snapshots projected to assertions, in insertion order.
func (e *Engine) loadFlows(ctx context.Context, checklistID int64) ([]model.Flow, error) {
	flows, err := e.store.FlowsByChecklist(ctx, checklistID)
	if err != nil {
		return nil, fmt.Errorf("load flows: %w", err)
	}

	for i := range flows {
		snapshots, err := e.store.SnapshotsByFlow(ctx, flows[i].ID)
		if err != nil {
			return nil, fmt.Errorf("load snapshots for flow %q: %w", flows[i].Name, err)
		}
		assertions := make([]model.Assertion, 0, len(snapshots))
		for _, snap := range snapshots {
			assertions = append(assertions, snap.Assertion())
		}
		flows[i].Assertions = assertions
	}

	return flows, nil
}
