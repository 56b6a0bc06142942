package router

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/compass-pm/compass/internal/agents"
	"github.com/compass-pm/compass/internal/enrich"
	"github.com/compass-pm/compass/internal/llm"
	"github.com/compass-pm/compass/internal/state"
	"github.com/compass-pm/compass/internal/workflow"
	"github.com/compass-pm/compass/pkg/models"
)

// queuedGenerator returns one canned outcome per call, in order.
type queuedGenerator struct {
	replies []string
	errs    []error
	calls   int
}

func (q *queuedGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	i := q.calls
	q.calls++
	if i < len(q.errs) && q.errs[i] != nil {
		return "", q.errs[i]
	}
	if i < len(q.replies) {
		return q.replies[i], nil
	}
	return "", errors.New("no reply queued")
}

func (q *queuedGenerator) Name() string { return "queued" }

type fixedClassifier struct {
	cls models.Classification
}

func (f fixedClassifier) Classify(ctx context.Context, ec *models.EnrichedContext) models.Classification {
	return f.cls
}

func testDB(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "compass.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newRouter(t *testing.T, db *state.DB, gen llm.Generator, intent models.AgentName, confidence float64) *Router {
	t.Helper()
	return New(
		enrich.NewBuilder(db, nil, nil),
		fixedClassifier{models.Classification{Intent: intent, Confidence: confidence, Rationale: "test"}},
		StaticRules(workflow.DefaultRules()),
		agents.NewRegistry(gen, nil),
		db,
		nil,
		nil,
	)
}

const diagnosisReply = `{"surface_problem": "conversion fell", "root_cause": "forced signup", "confidence": 0.9}`
const strategyReply = `{"recommendation": "guest checkout first", "decision_state": "decided", "confidence": 0.85}`
const executionReply = `{"mvp_scope": ["guest checkout"], "confidence": 0.8}`

func TestRunColdSessionEnforcesFullChain(t *testing.T) {
	db := testDB(t)
	gen := &queuedGenerator{replies: []string{diagnosisReply, strategyReply, executionReply}}
	r := newRouter(t, db, gen, models.AgentExecution, 0.85)

	res, err := r.Run(context.Background(), "ship a fix for the conversion drop", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantSeq := []models.AgentName{models.AgentDiagnosis, models.AgentStrategy, models.AgentExecution}
	if !reflect.DeepEqual(res.Sequence, wantSeq) {
		t.Fatalf("Sequence = %v, want %v", res.Sequence, wantSeq)
	}
	if !reflect.DeepEqual(res.RulesApplied, []string{"R-01", "R-02"}) {
		t.Errorf("RulesApplied = %v", res.RulesApplied)
	}
	if res.Warning == "" {
		t.Error("expected a sequencing warning")
	}
	if len(res.AgentOutputs) != 3 {
		t.Fatalf("got %d outputs, want 3", len(res.AgentOutputs))
	}
	for _, out := range res.AgentOutputs {
		if out.Status != models.StatusSuccess {
			t.Errorf("agent %s status = %q", out.Agent, out.Status)
		}
	}
	if res.ProblemState != models.ProblemFramed {
		t.Errorf("ProblemState = %q, want framed", res.ProblemState)
	}
	if res.DecisionState != models.DecisionDecided {
		t.Errorf("DecisionState = %q, want decided", res.DecisionState)
	}
	if res.Turn != 1 {
		t.Errorf("Turn = %d, want 1", res.Turn)
	}

	// State must be persisted for the next query.
	sess, err := db.GetSession(res.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.ProblemState != models.ProblemFramed || sess.DecisionState != models.DecisionDecided {
		t.Errorf("persisted state = %s/%s", sess.ProblemState, sess.DecisionState)
	}
	turns, err := db.GetRecentTurns(res.SessionID, 10)
	if err != nil {
		t.Fatalf("get turns: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("got %d turns, want 1", len(turns))
	}
}

func TestRunWarmSessionSkipsGates(t *testing.T) {
	db := testDB(t)
	sess, err := db.CreateSession("")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := db.UpdateSessionState(sess.ID, models.StateUpdates{
		ProblemState:  models.ProblemFramed,
		DecisionState: models.DecisionDecided,
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	gen := &queuedGenerator{replies: []string{executionReply}}
	r := newRouter(t, db, gen, models.AgentExecution, 0.9)

	res, err := r.Run(context.Background(), "ship the guest checkout MVP", sess.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(res.Sequence, []models.AgentName{models.AgentExecution}) {
		t.Errorf("Sequence = %v, want just execution", res.Sequence)
	}
	if res.Warning != "" {
		t.Errorf("Warning = %q, want none", res.Warning)
	}
	if len(res.RulesApplied) != 0 {
		t.Errorf("RulesApplied = %v, want none", res.RulesApplied)
	}
}

func TestRunClarificationHalt(t *testing.T) {
	db := testDB(t)
	sess, err := db.CreateSession("")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	clarify := `{"clarifying_questions": ["Which competitor set?"], "context_used": ["prior turns"]}`
	gen := &queuedGenerator{replies: []string{clarify}}
	r := newRouter(t, db, gen, models.AgentCompetitiveIntel, 0.9)

	res, err := r.Run(context.Background(), "what are competitors doing", sess.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.NeedsClarification {
		t.Fatal("expected clarification halt")
	}
	if res.ClarifyingAgent != models.AgentCompetitiveIntel {
		t.Errorf("ClarifyingAgent = %q", res.ClarifyingAgent)
	}
	if !reflect.DeepEqual(res.ClarifyingQuestions, []string{"Which competitor set?"}) {
		t.Errorf("ClarifyingQuestions = %v", res.ClarifyingQuestions)
	}
	// Strategy was appended by the intel rule and never ran.
	if !reflect.DeepEqual(res.PendingAgents, []models.AgentName{models.AgentStrategy}) {
		t.Errorf("PendingAgents = %v", res.PendingAgents)
	}
	if len(res.AgentOutputs) != 2 || res.AgentOutputs[1].Status != models.StatusPending {
		t.Errorf("outputs = %+v", res.AgentOutputs)
	}

	// Nothing persists on a halt.
	turns, err := db.GetRecentTurns(sess.ID, 10)
	if err != nil {
		t.Fatalf("get turns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("got %d turns, want 0", len(turns))
	}
	after, err := db.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if after.ProblemState != models.ProblemUndefined || after.DecisionState != models.DecisionNone {
		t.Errorf("session state changed on halt: %s/%s", after.ProblemState, after.DecisionState)
	}
}

func TestRunAgentFailureContinuesSequence(t *testing.T) {
	db := testDB(t)
	gen := &queuedGenerator{
		replies: []string{"", strategyReply, executionReply},
		errs:    []error{errors.New("provider down"), nil, nil},
	}
	r := newRouter(t, db, gen, models.AgentExecution, 0.85)

	res, err := r.Run(context.Background(), "ship a fix for the conversion drop", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.AgentOutputs) != 3 {
		t.Fatalf("got %d outputs, want 3", len(res.AgentOutputs))
	}
	if res.AgentOutputs[0].Status != models.StatusError {
		t.Errorf("first output status = %q, want error", res.AgentOutputs[0].Status)
	}
	if res.AgentOutputs[1].Status != models.StatusSuccess || res.AgentOutputs[2].Status != models.StatusSuccess {
		t.Error("later agents should still run after a failure")
	}
	// The failed diagnosis emitted no patch; strategy still decided.
	if res.ProblemState != models.ProblemUndefined {
		t.Errorf("ProblemState = %q, want undefined", res.ProblemState)
	}
	if res.DecisionState != models.DecisionDecided {
		t.Errorf("DecisionState = %q, want decided", res.DecisionState)
	}
	if res.Turn != 1 {
		t.Errorf("Turn = %d, want 1", res.Turn)
	}
}

func TestRunOutOfScope(t *testing.T) {
	db := testDB(t)
	gen := &queuedGenerator{}
	r := newRouter(t, db, gen, models.IntentNone, 0.95)

	res, err := r.Run(context.Background(), "what's a good pasta recipe", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Sequence) != 0 {
		t.Errorf("Sequence = %v, want empty", res.Sequence)
	}
	if res.Warning == "" {
		t.Error("expected out-of-scope warning")
	}
	if len(res.AgentOutputs) != 0 {
		t.Errorf("AgentOutputs = %v, want none", res.AgentOutputs)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
	turns, err := db.GetRecentTurns(res.SessionID, 10)
	if err != nil {
		t.Fatalf("get turns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("out-of-scope query recorded a turn")
	}
}

func TestRouteRecordsTurnWithoutExecution(t *testing.T) {
	db := testDB(t)
	gen := &queuedGenerator{}
	r := newRouter(t, db, gen, models.AgentExecution, 0.85)

	res, err := r.Route(context.Background(), "ship a fix for the conversion drop", "")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(res.AgentOutputs) != 0 {
		t.Errorf("Route must not execute agents, got %v", res.AgentOutputs)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
	if res.Turn != 1 {
		t.Errorf("Turn = %d, want 1", res.Turn)
	}
	turns, err := db.GetRecentTurns(res.SessionID, 10)
	if err != nil {
		t.Fatalf("get turns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if !reflect.DeepEqual(turns[0].Sequence, res.Sequence) {
		t.Errorf("recorded sequence = %v, want %v", turns[0].Sequence, res.Sequence)
	}
}

func TestRunStateCarriesForwardWithinSequence(t *testing.T) {
	// The strategy specialist must see the framed problem the
	// diagnosis specialist just established, not the stale session
	// state. The queued generator cannot observe that directly, so
	// assert through the run context folding: a second query in the
	// same session starts from the persisted framed/decided state.
	db := testDB(t)
	gen := &queuedGenerator{replies: []string{diagnosisReply, strategyReply, executionReply, executionReply}}
	r := newRouter(t, db, gen, models.AgentExecution, 0.85)

	first, err := r.Run(context.Background(), "ship a fix for the conversion drop", "")
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, err := r.Run(context.Background(), "now ship the next phase", first.SessionID)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !reflect.DeepEqual(second.Sequence, []models.AgentName{models.AgentExecution}) {
		t.Errorf("second Sequence = %v, gates should not re-fire", second.Sequence)
	}
	if second.Turn != 2 {
		t.Errorf("second Turn = %d, want 2", second.Turn)
	}
}
