package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/compass-pm/compass/internal/knowledge"
	"github.com/compass-pm/compass/internal/state"
	"github.com/compass-pm/compass/pkg/models"
)

func testStore(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "compass.db"))
	if err != nil {
		t.Fatalf("open state db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeSearcher struct {
	result *knowledge.Result
	err    error
	calls  int
}

func (f *fakeSearcher) Retrieve(ctx context.Context, agent models.AgentName, query, topic string, n int) (*knowledge.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestInferTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Our checkout conversion dropped from 2.8% to 2.1%", "conversion"},
		{"cart abandonment is up after the redesign", "cart_abandonment"},
		{"repeat purchase rate and churn look bad", "retention"},
		{"what are competitors like Shein doing", "competitive"},
		{"planning the Black Friday campaign", "campaign"},
		{"what should I work on next", "general"},
		{"", "general"},
	}
	for _, tt := range tests {
		if got := InferTopic(tt.query); got != tt.want {
			t.Errorf("InferTopic(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestInferTopicMostMatchesWins(t *testing.T) {
	// "search" votes once for search_discovery; two pricing phrases
	// should outvote it.
	q := "search results show the wrong price after the discount"
	if got := InferTopic(q); got != "pricing" {
		t.Errorf("InferTopic(%q) = %q, want pricing", q, got)
	}
}

func TestExtractMetrics(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"conversion dropped from 2.8% to 2.1%", []string{"2.8%", "2.1%"}},
		{"we have 40 engineers", []string{"40"}},
		{"no numbers here", nil},
	}
	for _, tt := range tests {
		if got := ExtractMetrics(tt.query); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExtractMetrics(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestBuildCreatesSession(t *testing.T) {
	db := testStore(t)
	b := NewBuilder(db, nil, nil)

	ec, err := b.Build(context.Background(), "checkout conversion fell", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ec.SessionID == "" {
		t.Error("expected a generated session id")
	}
	if ec.ProblemState != models.ProblemUndefined {
		t.Errorf("ProblemState = %q, want %q", ec.ProblemState, models.ProblemUndefined)
	}
	if ec.DecisionState != models.DecisionNone {
		t.Errorf("DecisionState = %q, want %q", ec.DecisionState, models.DecisionNone)
	}
	if ec.Topic != "conversion" {
		t.Errorf("Topic = %q, want conversion", ec.Topic)
	}
	if len(ec.PriorTurns) != 0 {
		t.Errorf("expected no prior turns, got %d", len(ec.PriorTurns))
	}
}

func TestBuildCarriesPriorTurns(t *testing.T) {
	db := testStore(t)
	sess, err := db.CreateSession("")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	seq := []models.AgentName{models.AgentDiagnosis}
	for _, q := range []string{"first", "second", "third"} {
		if _, err := db.AppendTurn(sess.ID, q, models.AgentDiagnosis, seq); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	b := NewBuilder(db, nil, nil)
	ec, err := b.Build(context.Background(), "follow-up", sess.ID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ec.SessionID != sess.ID {
		t.Errorf("SessionID = %q, want %q", ec.SessionID, sess.ID)
	}
	if len(ec.PriorTurns) != 3 {
		t.Fatalf("got %d prior turns, want 3", len(ec.PriorTurns))
	}
	// Oldest first.
	if ec.PriorTurns[0].Query != "first" || ec.PriorTurns[2].Query != "third" {
		t.Errorf("prior turns out of order: %+v", ec.PriorTurns)
	}
	if ec.PriorTurns[0].Turn != 1 {
		t.Errorf("first digest turn = %d, want 1", ec.PriorTurns[0].Turn)
	}
}

func TestBuildKnowledgeSummary(t *testing.T) {
	db := testStore(t)
	s := &fakeSearcher{result: &knowledge.Result{Summary: "relevant background"}}
	b := NewBuilder(db, s, nil)

	ec, err := b.Build(context.Background(), "why is churn up", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ec.KnowledgeSummary != "relevant background" {
		t.Errorf("KnowledgeSummary = %q", ec.KnowledgeSummary)
	}
	if s.calls != 1 {
		t.Errorf("searcher called %d times, want 1", s.calls)
	}
}

func TestBuildRetrievalFailureIsNonFatal(t *testing.T) {
	db := testStore(t)
	s := &fakeSearcher{err: errors.New("index offline")}
	b := NewBuilder(db, s, nil)

	ec, err := b.Build(context.Background(), "why is churn up", "")
	if err != nil {
		t.Fatalf("Build should not fail on retrieval error: %v", err)
	}
	if ec.KnowledgeSummary != "" {
		t.Errorf("KnowledgeSummary = %q, want empty", ec.KnowledgeSummary)
	}
}
