package state

import (
	"path/filepath"
	"testing"

	"github.com/compass-pm/compass/pkg/models"
)

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestCreateSession_Defaults(t *testing.T) {
	db := setupTestDB(t)

	s, err := db.CreateSession("")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if s.ID == "" {
		t.Error("expected generated session id")
	}
	if s.ProblemState != models.ProblemUndefined {
		t.Errorf("ProblemState = %q, want %q", s.ProblemState, models.ProblemUndefined)
	}
	if s.DecisionState != models.DecisionNone {
		t.Errorf("DecisionState = %q, want %q", s.DecisionState, models.DecisionNone)
	}
}

func TestGetSession_Missing(t *testing.T) {
	db := setupTestDB(t)

	s, err := db.GetSession("ses-nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil for missing session, got %+v", s)
	}
}

func TestGetOrCreateSession(t *testing.T) {
	db := setupTestDB(t)

	// Unknown id gets created with that id.
	s, err := db.GetOrCreateSession("ses-abc123")
	if err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}
	if s.ID != "ses-abc123" {
		t.Errorf("ID = %q, want ses-abc123", s.ID)
	}

	// Second resolve returns the same session, not a new one.
	again, err := db.GetOrCreateSession("ses-abc123")
	if err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}
	if again.ID != s.ID {
		t.Errorf("resolved to %q, want %q", again.ID, s.ID)
	}

	sessions, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("session count = %d, want 1", len(sessions))
	}
}

func TestUpdateSessionState_PartialPatch(t *testing.T) {
	db := setupTestDB(t)
	s, _ := db.CreateSession("")

	// Patch only the problem state.
	err := db.UpdateSessionState(s.ID, models.StateUpdates{ProblemState: models.ProblemFramed})
	if err != nil {
		t.Fatalf("UpdateSessionState failed: %v", err)
	}

	got, _ := db.GetSession(s.ID)
	if got.ProblemState != models.ProblemFramed {
		t.Errorf("ProblemState = %q, want framed", got.ProblemState)
	}
	if got.DecisionState != models.DecisionNone {
		t.Errorf("DecisionState = %q, want unchanged none", got.DecisionState)
	}

	// Patch only the decision state; problem state stays framed.
	err = db.UpdateSessionState(s.ID, models.StateUpdates{DecisionState: models.DecisionDecided})
	if err != nil {
		t.Fatalf("UpdateSessionState failed: %v", err)
	}

	got, _ = db.GetSession(s.ID)
	if got.ProblemState != models.ProblemFramed {
		t.Errorf("ProblemState = %q, want framed after decision patch", got.ProblemState)
	}
	if got.DecisionState != models.DecisionDecided {
		t.Errorf("DecisionState = %q, want decided", got.DecisionState)
	}
}

func TestUpdateSessionState_EmptyPatchIsNoop(t *testing.T) {
	db := setupTestDB(t)
	s, _ := db.CreateSession("")

	if err := db.UpdateSessionState(s.ID, models.StateUpdates{}); err != nil {
		t.Fatalf("empty patch should succeed: %v", err)
	}

	got, _ := db.GetSession(s.ID)
	if got.ProblemState != models.ProblemUndefined || got.DecisionState != models.DecisionNone {
		t.Errorf("empty patch changed state: %+v", got)
	}
}

func TestUpdateSessionState_InvalidState(t *testing.T) {
	db := setupTestDB(t)
	s, _ := db.CreateSession("")

	err := db.UpdateSessionState(s.ID, models.StateUpdates{ProblemState: "bogus"})
	if err == nil {
		t.Error("expected error for invalid problem state")
	}
}

func TestAppendTurn_Numbering(t *testing.T) {
	db := setupTestDB(t)
	s, _ := db.CreateSession("")

	for want := 1; want <= 5; want++ {
		n, err := db.AppendTurn(s.ID, "query", models.AgentDiagnosis, []models.AgentName{models.AgentDiagnosis})
		if err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
		if n != want {
			t.Errorf("turn number = %d, want %d", n, want)
		}
	}
}

func TestAppendTurn_PerSessionCounters(t *testing.T) {
	db := setupTestDB(t)
	a, _ := db.CreateSession("")
	b, _ := db.CreateSession("")

	db.AppendTurn(a.ID, "first", models.AgentDiagnosis, nil)
	db.AppendTurn(a.ID, "second", models.AgentStrategy, nil)

	n, err := db.AppendTurn(b.ID, "other session", models.AgentNarration, nil)
	if err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if n != 1 {
		t.Errorf("turn number for fresh session = %d, want 1", n)
	}
}

func TestGetRecentTurns_OldestFirst(t *testing.T) {
	db := setupTestDB(t)
	s, _ := db.CreateSession("")

	queries := []string{"one", "two", "three", "four"}
	for _, q := range queries {
		if _, err := db.AppendTurn(s.ID, q, models.AgentDiagnosis, []models.AgentName{models.AgentDiagnosis}); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	turns, err := db.GetRecentTurns(s.ID, 3)
	if err != nil {
		t.Fatalf("GetRecentTurns failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("turn count = %d, want 3", len(turns))
	}

	// The oldest turn is dropped by the limit; the rest come back in
	// chronological order.
	want := []string{"two", "three", "four"}
	for i, turn := range turns {
		if turn.Query != want[i] {
			t.Errorf("turns[%d].Query = %q, want %q", i, turn.Query, want[i])
		}
		if turn.TurnNumber != i+2 {
			t.Errorf("turns[%d].TurnNumber = %d, want %d", i, turn.TurnNumber, i+2)
		}
	}
}

func TestGetRecentTurns_SequenceRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	s, _ := db.CreateSession("")

	seq := []models.AgentName{models.AgentDiagnosis, models.AgentStrategy, models.AgentExecution}
	if _, err := db.AppendTurn(s.ID, "ship it", models.AgentExecution, seq); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	turns, err := db.GetRecentTurns(s.ID, 10)
	if err != nil {
		t.Fatalf("GetRecentTurns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("turn count = %d, want 1", len(turns))
	}
	if len(turns[0].Sequence) != 3 || turns[0].Sequence[0] != models.AgentDiagnosis {
		t.Errorf("sequence round-trip = %v, want %v", turns[0].Sequence, seq)
	}
	if turns[0].Intent != models.AgentExecution {
		t.Errorf("intent = %q, want execution", turns[0].Intent)
	}
}
