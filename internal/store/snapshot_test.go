package store

import (
	"context"
	"testing"
)

func TestCreateSnapshot_New(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, checklist := createTestChecklist(t, s)

	flow, err := s.CreateFlow(ctx, checklist.ID, "login")
	if err != nil {
		t.Fatalf("CreateFlow() failed: %v", err)
	}

	snap, err := s.CreateSnapshot(ctx, flow.ID, "shows greeting", `{"ok":true}`)
	if err != nil {
		t.Fatalf("CreateSnapshot() failed: %v", err)
	}
	if snap.ID == 0 {
		t.Error("snapshot id not assigned")
	}
	if snap.Value != `{"ok":true}` {
		t.Errorf("value = %q", snap.Value)
	}
}

func TestCreateSnapshot_ConflictReturnsExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, checklist := createTestChecklist(t, s)

	flow, err := s.CreateFlow(ctx, checklist.ID, "login")
	if err != nil {
		t.Fatalf("CreateFlow() failed: %v", err)
	}

	first, err := s.CreateSnapshot(ctx, flow.ID, "shows greeting", `{"v":1}`)
	if err != nil {
		t.Fatalf("first CreateSnapshot() failed: %v", err)
	}

	// Simulates the losing side of a concurrent-run race: the second create
	// must not overwrite and must hand back the winner's row.
	second, err := s.CreateSnapshot(ctx, flow.ID, "shows greeting", `{"v":2}`)
	if err != nil {
		t.Fatalf("second CreateSnapshot() failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second create returned id %d, want existing id %d", second.ID, first.ID)
	}
	if second.Value != `{"v":1}` {
		t.Errorf("second create returned value %q, want stored %q", second.Value, `{"v":1}`)
	}
	if n := countRows(t, s, "snapshots"); n != 1 {
		t.Errorf("snapshot count = %d, want 1", n)
	}
}

func TestSnapshotsByFlow_InsertionOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, checklist := createTestChecklist(t, s)

	flow, err := s.CreateFlow(ctx, checklist.ID, "login")
	if err != nil {
		t.Fatalf("CreateFlow() failed: %v", err)
	}

	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		if _, err := s.CreateSnapshot(ctx, flow.ID, name, `{}`); err != nil {
			t.Fatalf("CreateSnapshot(%q) failed: %v", name, err)
		}
	}

	snaps, err := s.SnapshotsByFlow(ctx, flow.ID)
	if err != nil {
		t.Fatalf("SnapshotsByFlow() failed: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snaps))
	}
	for i, name := range names {
		if snaps[i].Name != name {
			t.Errorf("snaps[%d].Name = %q, want %q (insertion order)", i, snaps[i].Name, name)
		}
	}
}

func TestSnapshotsByFlow_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, checklist := createTestChecklist(t, s)

	flow, err := s.CreateFlow(ctx, checklist.ID, "empty")
	if err != nil {
		t.Fatalf("CreateFlow() failed: %v", err)
	}

	snaps, err := s.SnapshotsByFlow(ctx, flow.ID)
	if err != nil {
		t.Fatalf("SnapshotsByFlow() failed: %v", err)
	}
	if snaps == nil {
		t.Error("got nil, want empty slice")
	}
	if len(snaps) != 0 {
		t.Errorf("got %d snapshots, want 0", len(snaps))
	}
}

func TestSeedSnapshot_InsertIfAbsent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, checklist := createTestChecklist(t, s)

	flow, err := s.CreateFlow(ctx, checklist.ID, "login")
	if err != nil {
		t.Fatalf("CreateFlow() failed: %v", err)
	}

	if err := s.SeedSnapshot(ctx, checklist.ID, "login", "shows greeting", `{"v":1}`); err != nil {
		t.Fatalf("first SeedSnapshot() failed: %v", err)
	}
	// Same tuple again: no-op.
	if err := s.SeedSnapshot(ctx, checklist.ID, "login", "shows greeting", `{"v":1}`); err != nil {
		t.Fatalf("second SeedSnapshot() failed: %v", err)
	}
	// Changed value for an existing name: must not overwrite.
	if err := s.SeedSnapshot(ctx, checklist.ID, "login", "shows greeting", `{"v":99}`); err != nil {
		t.Fatalf("third SeedSnapshot() failed: %v", err)
	}

	snaps, err := s.SnapshotsByFlow(ctx, flow.ID)
	if err != nil {
		t.Fatalf("SnapshotsByFlow() failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want exactly 1", len(snaps))
	}
	if snaps[0].Value != `{"v":1}` {
		t.Errorf("value = %q, want original %q", snaps[0].Value, `{"v":1}`)
	}
}

func TestSeedSnapshot_UnknownFlowIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, checklist := createTestChecklist(t, s)

	if err := s.SeedSnapshot(ctx, checklist.ID, "no such flow", "a", `{}`); err != nil {
		t.Fatalf("SeedSnapshot() failed: %v", err)
	}
	if n := countRows(t, s, "snapshots"); n != 0 {
		t.Errorf("snapshot count = %d, want 0", n)
	}
}

func TestCreateFlow_ConflictReturnsExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, checklist := createTestChecklist(t, s)

	first, err := s.CreateFlow(ctx, checklist.ID, "login")
	if err != nil {
		t.Fatalf("first CreateFlow() failed: %v", err)
	}
	second, err := s.CreateFlow(ctx, checklist.ID, "login")
	if err != nil {
		t.Fatalf("second CreateFlow() failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second create returned id %d, want existing id %d", second.ID, first.ID)
	}
	if n := countRows(t, s, "flows"); n != 1 {
		t.Errorf("flow count = %d, want 1", n)
	}
}

func TestCreateFlow_SameNameDifferentChecklists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key, first := createTestChecklist(t, s)

	second, err := s.CreateChecklist(ctx, key.ID, "http://other.test")
	if err != nil {
		t.Fatalf("CreateChecklist() failed: %v", err)
	}

	f1, err := s.CreateFlow(ctx, first.ID, "login")
	if err != nil {
		t.Fatalf("CreateFlow() failed: %v", err)
	}
	f2, err := s.CreateFlow(ctx, second.ID, "login")
	if err != nil {
		t.Fatalf("CreateFlow() failed: %v", err)
	}
	if f1.ID == f2.ID {
		t.Error("flows on different checklists must be distinct rows")
	}
}
