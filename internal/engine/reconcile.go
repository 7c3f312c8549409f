package engine

import (
	"context"

	"github.com/roach88/attest/internal/model"
)

// reconcileFlow merges one observed flow with persisted state.
//
// The flow is resolved (or created) by exact name match. Each observed
// assertion is then processed in worker order:
//
//  1. Disambiguate the name: repeats of a raw name within this pass get a
//     "[2]", "[3]", ... suffix. The counter is scoped to this flow and this
//     run only.
//  2. Look the effective name up among the flow's known assertions,
//     including snapshots created earlier in this same pass.
//  3. Absent: NEW, and the snapshot is persisted.
//     Present: structural comparison decides MATCH or MISS; a MISS carries
//     the stored value as ExpectedSnapshot so the caller can diff.
func (e *Engine) reconcileFlow(ctx context.Context, checklistID int64, known []model.Flow, observed model.Flow) (model.Flow, error) {
	flowID, assertions, err := e.resolveFlow(ctx, checklistID, known, observed.Name)
	if err != nil {
		return model.Flow{}, err
	}

	out := model.Flow{
		ID:         flowID,
		Name:       observed.Name,
		Assertions: make([]model.Assertion, 0, len(observed.Assertions)),
	}
	seen := make(map[string]int)

	for _, obs := range observed.Assertions {
		name := model.DisambiguatedName(obs.Name, seen[obs.Name])
		seen[obs.Name]++

		result := model.Assertion{Name: name, Snapshot: obs.Snapshot}

		prior, ok := lookupAssertion(assertions, name)
		switch {
		case !ok:
			result.Result = model.ResultNew
			snap, err := e.store.CreateSnapshot(ctx, flowID, name, obs.Snapshot)
			if err != nil {
				return model.Flow{}, err
			}
			// Later occurrences in this pass must see the fresh snapshot.
			assertions = append(assertions, snap.Assertion())
		case model.StructurallyEqual(prior.Snapshot, obs.Snapshot):
			result.Result = model.ResultMatch
		default:
			result.Result = model.ResultMiss
			result.ExpectedSnapshot = prior.Snapshot
		}

		out.Summary.Add(result.Result)
		out.Assertions = append(out.Assertions, result)
	}

	return out, nil
}

// resolveFlow finds the persisted flow matching the observed name, creating
// it when the worker reports a name not yet known for the checklist.
// Returns the flow id and its known assertions (empty for a fresh flow).
func (e *Engine) resolveFlow(ctx context.Context, checklistID int64, known []model.Flow, name string) (int64, []model.Assertion, error) {
	for _, f := range known {
		if f.Name == name {
			// Copy: reconciliation appends as it creates snapshots, and the
			// caller's working set must stay untouched.
			assertions := make([]model.Assertion, len(f.Assertions))
			copy(assertions, f.Assertions)
			return f.ID, assertions, nil
		}
	}

	created, err := e.store.CreateFlow(ctx, checklistID, name)
	if err != nil {
		return 0, nil, err
	}
	e.log.Debug("materialized new flow", "checklist", checklistID, "flow", name)
	return created.ID, nil, nil
}

// lookupAssertion finds an assertion by its effective (disambiguated) name.
func lookupAssertion(assertions []model.Assertion, name string) (model.Assertion, bool) {
	for _, a := range assertions {
		if a.Name == name {
			return a, true
		}
	}
	return model.Assertion{}, false
}
