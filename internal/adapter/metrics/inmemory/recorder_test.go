package inmemory

import (
	"testing"

	"civbuilders/internal/domain/progression"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordSuccess(string(progression.OutcomeSessionStarted))
	r.RecordSuccess(string(progression.OutcomeContributionPlayed))
	r.RecordRejected("insufficient_resources")
	r.RecordFailure()

	s := r.Snapshot()
	if s.ActionTotal != 4 {
		t.Fatalf("expected total 4, got %d", s.ActionTotal)
	}
	if s.ActionSuccess != 2 {
		t.Fatalf("expected success 2, got %d", s.ActionSuccess)
	}
	if s.ActionRejected != 1 {
		t.Fatalf("expected rejected 1, got %d", s.ActionRejected)
	}
	if s.ActionFailure != 1 {
		t.Fatalf("expected failure 1, got %d", s.ActionFailure)
	}
	if s.ByOutcome[string(progression.OutcomeSessionStarted)] != 1 {
		t.Fatalf("expected session_started count 1")
	}
	if s.ByRejectCode["insufficient_resources"] != 1 {
		t.Fatalf("expected insufficient_resources count 1")
	}
}

func TestRecorderSaveAndLoadCounters(t *testing.T) {
	r := NewRecorder()
	r.RecordSave(true, 4)
	r.RecordSave(true, 0)
	r.RecordSave(false, 2)
	r.RecordLoad(true, true)
	r.RecordLoad(false, true)
	r.RecordLoad(false, false)

	s := r.Snapshot()
	if s.SaveSuccess != 2 || s.SaveFailure != 1 {
		t.Fatalf("unexpected save counters: %+v", s)
	}
	if s.SaveCoalesced != 4 {
		t.Fatalf("expected coalesced 4, got %d", s.SaveCoalesced)
	}
	if s.LoadFound != 1 || s.LoadMissing != 1 || s.LoadFailure != 1 {
		t.Fatalf("unexpected load counters: %+v", s)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRecorder()
	r.RecordSuccess("x")
	s := r.Snapshot()
	s.ByOutcome["x"] = 99
	if r.Snapshot().ByOutcome["x"] != 1 {
		t.Fatalf("snapshot map aliases recorder state")
	}
}
