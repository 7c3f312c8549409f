package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attest/internal/model"
	"github.com/roach88/attest/internal/store"
)

// fakeWorker returns canned flows and records what it was sent.
type fakeWorker struct {
	flows []model.Flow
	err   error
	sent  []model.Flow
}

func (f *fakeWorker) Run(ctx context.Context, origin string, flows []model.Flow) ([]model.Flow, error) {
	f.sent = flows
	if f.err != nil {
		return nil, f.err
	}
	return f.flows, nil
}

func newTestEngine(t *testing.T, w WorkerInvoker) (*Engine, *store.Store, model.Checklist) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	key, err := s.CreateAPIKey(ctx)
	require.NoError(t, err)
	checklist, err := s.CreateChecklist(ctx, key.ID, "http://worker.test")
	require.NoError(t, err)

	return New(s, w), s, checklist
}

// snapshotCount counts all persisted snapshots of a checklist.
func snapshotCount(t *testing.T, s *store.Store, checklistID int64) int {
	t.Helper()
	ctx := context.Background()
	flows, err := s.FlowsByChecklist(ctx, checklistID)
	require.NoError(t, err)
	n := 0
	for _, f := range flows {
		snaps, err := s.SnapshotsByFlow(ctx, f.ID)
		require.NoError(t, err)
		n += len(snaps)
	}
	return n
}

func observed(name string, assertions ...model.Assertion) model.Flow {
	return model.Flow{Name: name, Assertions: assertions}
}

func a(name, snapshot string) model.Assertion {
	return model.Assertion{Name: name, Snapshot: snapshot}
}

func TestRun_FirstRunAllNew(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{
		observed("signup", a("shows form", `{"fields":2}`), a("submits", `{"ok":true}`)),
	}}
	eng, s, checklist := newTestEngine(t, w)

	flows, err := eng.Run(context.Background(), checklist)
	require.NoError(t, err)

	require.Len(t, flows, 1)
	assert.Equal(t, model.Summary{New: 2}, flows[0].Summary)
	for _, got := range flows[0].Assertions {
		assert.Equal(t, model.ResultNew, got.Result)
		assert.Empty(t, got.ExpectedSnapshot)
	}
	assert.Equal(t, 2, snapshotCount(t, s, checklist.ID))
}

func TestRun_RepeatRunIsIdempotent(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{
		observed("signup", a("shows form", `{"fields":2}`), a("submits", `{"ok":true}`)),
	}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	_, err := eng.Run(ctx, checklist)
	require.NoError(t, err)
	countAfterFirst := snapshotCount(t, s, checklist.ID)

	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	require.Len(t, flows, 1)
	assert.Equal(t, model.Summary{Match: 2}, flows[0].Summary)
	assert.Equal(t, countAfterFirst, snapshotCount(t, s, checklist.ID),
		"second identical run must not create snapshots")
}

func TestRun_SingleMismatchIsolation(t *testing.T) {
	// Stored state written out-of-band, then the worker observes one changed
	// value among many unchanged ones.
	w := &fakeWorker{flows: []model.Flow{
		observed("profile",
			a("name", `{"v":"ada"}`),
			a("email", `{"v":"ada@example.com"}`),
			a("plan", `{"v":"pro"}`),
		),
	}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	flow, err := s.CreateFlow(ctx, checklist.ID, "profile")
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, flow.ID, "name", `{"v":"ada"}`)
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, flow.ID, "email", `{"v":"altered@example.com"}`)
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, flow.ID, "plan", `{"v":"pro"}`)
	require.NoError(t, err)

	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	require.Len(t, flows, 1)
	assert.Equal(t, model.Summary{Match: 2, Miss: 1}, flows[0].Summary)

	miss := flows[0].Assertions[1]
	assert.Equal(t, model.ResultMiss, miss.Result)
	assert.Equal(t, `{"v":"altered@example.com"}`, miss.ExpectedSnapshot,
		"MISS must carry the stored value for diffing")
	assert.Equal(t, `{"v":"ada@example.com"}`, miss.Snapshot)

	assert.Empty(t, flows[0].Assertions[0].ExpectedSnapshot,
		"MATCH must not carry expectedSnapshot")
}

func TestRun_DuplicateNameDisambiguation(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{
		observed("math",
			a("check", `1`),
			a("check", `2`),
			a("check", `3`),
		),
	}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	require.Len(t, flows, 1)
	got := flows[0].Assertions
	require.Len(t, got, 3)
	assert.Equal(t, "check", got[0].Name)
	assert.Equal(t, "check[2]", got[1].Name)
	assert.Equal(t, "check[3]", got[2].Name)
	assert.Equal(t, model.Summary{New: 3}, flows[0].Summary)

	dbFlows, err := s.FlowsByChecklist(ctx, checklist.ID)
	require.NoError(t, err)
	snaps, err := s.SnapshotsByFlow(ctx, dbFlows[0].ID)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "check", snaps[0].Name)
	assert.Equal(t, "check[2]", snaps[1].Name)
	assert.Equal(t, "check[3]", snaps[2].Name)
}

func TestRun_DuplicateNamesMatchOnRepeatRun(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{
		observed("math", a("check", `1`), a("check", `2`)),
	}}
	eng, _, checklist := newTestEngine(t, w)
	ctx := context.Background()

	_, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	// Same payload again: the suffixed names resolve to the snapshots
	// created last run.
	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Match: 2}, flows[0].Summary)
}

func TestRun_NewFlowMaterialization(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{
		observed("never seen before", a("a", `1`)),
	}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	require.Len(t, flows, 1)
	assert.Equal(t, "never seen before", flows[0].Name)
	assert.Equal(t, model.Summary{New: 1}, flows[0].Summary)

	dbFlows, err := s.FlowsByChecklist(ctx, checklist.ID)
	require.NoError(t, err)
	require.Len(t, dbFlows, 1)
	assert.Equal(t, "never seen before", dbFlows[0].Name)
}

func TestRun_OrderPreservation(t *testing.T) {
	// Stored insertion order differs from worker-reported order; the output
	// must follow the worker.
	w := &fakeWorker{flows: []model.Flow{
		observed("f", a("zebra", `1`), a("apple", `2`), a("mango", `3`)),
	}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	flow, err := s.CreateFlow(ctx, checklist.ID, "f")
	require.NoError(t, err)
	for _, name := range []string{"apple", "mango", "zebra"} {
		_, err := s.CreateSnapshot(ctx, flow.ID, name, `0`)
		require.NoError(t, err)
	}

	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	names := []string{}
	for _, got := range flows[0].Assertions {
		names = append(names, got.Name)
	}
	assert.Equal(t, []string{"zebra", "apple", "mango"}, names)
}

func TestRun_PersistedFlowMissingFromWorkerIsDropped(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{
		observed("reported", a("a", `1`)),
	}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	stale, err := s.CreateFlow(ctx, checklist.ID, "stale")
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, stale.ID, "old", `{"kept":true}`)
	require.NoError(t, err)

	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	require.Len(t, flows, 1, "only worker-reported flows appear in the output")
	assert.Equal(t, "reported", flows[0].Name)

	// The stale flow's stored state is untouched.
	snaps, err := s.SnapshotsByFlow(ctx, stale.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, `{"kept":true}`, snaps[0].Value)
}

func TestRun_WorkerFailureLeavesNoPartialState(t *testing.T) {
	w := &fakeWorker{err: errors.New("connection refused")}
	eng, s, checklist := newTestEngine(t, w)

	_, err := eng.Run(context.Background(), checklist)
	require.Error(t, err)

	assert.Equal(t, 0, snapshotCount(t, s, checklist.ID))
	flows, ferr := s.FlowsByChecklist(context.Background(), checklist.ID)
	require.NoError(t, ferr)
	assert.Empty(t, flows)
}

func TestRun_UnparseableStoredValueIsMiss(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{
		observed("f", a("a", `{"x":1}`)),
	}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	flow, err := s.CreateFlow(ctx, checklist.ID, "f")
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, flow.ID, "a", `not json at all`)
	require.NoError(t, err)

	flows, err := eng.Run(ctx, checklist)
	require.NoError(t, err)

	assert.Equal(t, model.Summary{Miss: 1}, flows[0].Summary)
	assert.Equal(t, `not json at all`, flows[0].Assertions[0].ExpectedSnapshot)
}

func TestRun_SendsKnownFlowsToWorker(t *testing.T) {
	w := &fakeWorker{flows: []model.Flow{}}
	eng, s, checklist := newTestEngine(t, w)
	ctx := context.Background()

	flow, err := s.CreateFlow(ctx, checklist.ID, "math")
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, flow.ID, "check", `1`)
	require.NoError(t, err)
	_, err = s.CreateSnapshot(ctx, flow.ID, "check[2]", `2`)
	require.NoError(t, err)

	_, err = eng.Run(ctx, checklist)
	require.NoError(t, err)

	require.Len(t, w.sent, 1)
	require.Len(t, w.sent[0].Assertions, 2)
	// The engine hands over stored names as-is; suffix stripping is the
	// worker client's job at the wire boundary.
	assert.Equal(t, "check", w.sent[0].Assertions[0].Name)
	assert.Equal(t, "check[2]", w.sent[0].Assertions[1].Name)
	assert.Equal(t, `1`, w.sent[0].Assertions[0].Snapshot)
}
