package models

// OutputStatus is the terminal status of one specialist invocation.
type OutputStatus string

const (
	// StatusSuccess indicates the specialist completed its work.
	StatusSuccess OutputStatus = "success"
	// StatusNeedsClarification indicates the specialist cannot proceed
	// without more input from the user. This halts the sequence.
	StatusNeedsClarification OutputStatus = "needs_clarification"
	// StatusError indicates the specialist failed; the sequence continues.
	StatusError OutputStatus = "error"
	// StatusPending marks agents that never ran because an earlier
	// specialist halted the sequence for clarification.
	StatusPending OutputStatus = "pending"
)

// Classification is the intent classifier's verdict for one query.
type Classification struct {
	// Intent is a roster agent name, or IntentNone for off-domain queries.
	Intent AgentName `json:"intent"`
	// Confidence is always in [0, 1].
	Confidence float64 `json:"confidence"`
	// Rationale is the classifier's brief explanation.
	Rationale string `json:"rationale"`
}

// AgentOutput is the structured result of one specialist invocation.
type AgentOutput struct {
	// Agent is the specialist that produced (or failed to produce) this output.
	Agent AgentName `json:"agent"`
	// Status is the invocation outcome.
	Status OutputStatus `json:"status"`
	// Primary is the specialist's opaque structured output. For error
	// outputs it carries the error message under "error"; for parse
	// fallbacks it carries the raw model text under "raw".
	Primary map[string]any `json:"primary_output"`
	// NextAgent is the specialist's recommendation for what should run
	// next, if it has one.
	NextAgent AgentName `json:"next_recommended_agent,omitempty"`
	// StateUpdates is the partial session-state patch this specialist emits.
	StateUpdates StateUpdates `json:"state_updates"`
	// Confidence is the specialist's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`
	// ClarifyingQuestions holds the questions for the user when Status
	// is StatusNeedsClarification.
	ClarifyingQuestions []string `json:"clarifying_questions,omitempty"`
	// ContextUsed lists the context sources the specialist already
	// consulted, so callers can avoid redundant questions.
	ContextUsed []string `json:"context_used,omitempty"`
}

// ErrorOutput synthesizes an error-status output for an agent,
// used both for unknown agent names and for specialist failures.
func ErrorOutput(agent AgentName, msg string) *AgentOutput {
	return &AgentOutput{
		Agent:      agent,
		Status:     StatusError,
		Primary:    map[string]any{"error": msg},
		Confidence: 0.0,
	}
}

// PendingOutput synthesizes a pending-status output for an agent that
// was skipped because of a clarification halt.
func PendingOutput(agent AgentName) *AgentOutput {
	return &AgentOutput{
		Agent:   agent,
		Status:  StatusPending,
		Primary: map[string]any{},
	}
}
