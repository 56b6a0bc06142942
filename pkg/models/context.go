package models

// TurnDigest is the compact view of a past turn carried inside an
// enriched context. The full Turn record lives in the state store.
type TurnDigest struct {
	Turn     int         `json:"turn"`
	Query    string      `json:"query"`
	Intent   AgentName   `json:"intent"`
	Sequence []AgentName `json:"sequence"`
}

// EnrichedContext is the ephemeral bundle the context builder produces
// for each request. It is rebuilt on every query and never persisted.
type EnrichedContext struct {
	Query         string        `json:"query"`
	SessionID     string        `json:"session_id"`
	ProblemState  ProblemState  `json:"problem_state"`
	DecisionState DecisionState `json:"decision_state"`
	// Topic is the inferred topic label, "general" when nothing matches.
	Topic string `json:"topic"`
	// Metrics holds raw numeric mentions pulled from the query text.
	// No unit normalization is applied.
	Metrics []string `json:"metrics,omitempty"`
	// PriorTurns holds the last N turns, oldest first.
	PriorTurns []TurnDigest `json:"prior_turns,omitempty"`
	// KnowledgeSummary is the best-effort broad retrieval summary.
	// Empty when retrieval is unavailable or fails.
	KnowledgeSummary string `json:"knowledge_summary,omitempty"`
}

// RunContext is the mutable shared context threaded through a
// sequential agent run. Specialists read the live state enums here;
// the sequencer folds each specialist's state updates back in before
// the next specialist runs.
type RunContext struct {
	Enriched      *EnrichedContext
	ProblemState  ProblemState
	DecisionState DecisionState
}

// NewRunContext seeds a run context from an enriched context.
func NewRunContext(ec *EnrichedContext) *RunContext {
	return &RunContext{
		Enriched:      ec,
		ProblemState:  ec.ProblemState,
		DecisionState: ec.DecisionState,
	}
}

// Apply folds a state patch into the live run state. Unset fields are
// left unchanged. No monotonicity is enforced: a specialist may move a
// state backwards.
func (rc *RunContext) Apply(u StateUpdates) {
	if u.ProblemState != "" {
		rc.ProblemState = u.ProblemState
	}
	if u.DecisionState != "" {
		rc.DecisionState = u.DecisionState
	}
}
