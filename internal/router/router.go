// Package router is the orchestrator: context building, intent
// classification, workflow enforcement, and sequential agent execution
// behind two entry points. Route stops after enforcement; Run executes
// the enforced sequence and persists the resulting state.
package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/compass-pm/compass/internal/agents"
	"github.com/compass-pm/compass/internal/enrich"
	"github.com/compass-pm/compass/internal/knowledge"
	"github.com/compass-pm/compass/internal/workflow"
	"github.com/compass-pm/compass/pkg/models"
)

// Classifier is the intent-classification capability the router needs.
type Classifier interface {
	Classify(ctx context.Context, ec *models.EnrichedContext) models.Classification
}

// RuleSource serves the active rule set. Both a static set and the
// hot-reloading watcher satisfy it.
type RuleSource interface {
	Rules() *workflow.RuleSet
}

// staticRules adapts a fixed RuleSet into a RuleSource.
type staticRules struct{ rs *workflow.RuleSet }

func (s staticRules) Rules() *workflow.RuleSet { return s.rs }

// StaticRules wraps a fixed rule set for routers that do not hot-reload.
func StaticRules(rs *workflow.RuleSet) RuleSource { return staticRules{rs: rs} }

// Store is the slice of the state store the router persists through.
type Store interface {
	UpdateSessionState(id string, updates models.StateUpdates) error
	AppendTurn(sessionID, query string, intent models.AgentName, sequence []models.AgentName) (int, error)
}

// Result is the full routing outcome returned to callers.
type Result struct {
	Query     string    `json:"query"`
	SessionID string    `json:"session_id"`

	Intent     models.AgentName `json:"intent"`
	Confidence float64          `json:"confidence"`
	Rationale  string           `json:"rationale"`

	Sequence     []models.AgentName `json:"sequence"`
	Warning      string             `json:"warning,omitempty"`
	RulesApplied []string           `json:"rules_applied"`

	ProblemState  models.ProblemState  `json:"problem_state"`
	DecisionState models.DecisionState `json:"decision_state"`

	// Context is the enriched context the decision was made against.
	Context *models.EnrichedContext `json:"context"`

	// AgentOutputs is empty for Route; Run fills one entry per agent
	// in the sequence.
	AgentOutputs []*models.AgentOutput `json:"agent_outputs"`

	// Clarification halt fields, set by Run when a specialist stops
	// the sequence to ask the user something.
	NeedsClarification  bool               `json:"needs_clarification"`
	ClarifyingAgent     models.AgentName   `json:"clarifying_agent,omitempty"`
	ClarifyingQuestions []string           `json:"clarifying_questions,omitempty"`
	ContextUsed         []string           `json:"context_used,omitempty"`
	PendingAgents       []models.AgentName `json:"pending_agents,omitempty"`

	// Turn is the recorded turn number, zero when no turn was logged.
	Turn int `json:"turn,omitempty"`
}

// Router wires the pipeline stages together.
type Router struct {
	builder    *enrich.Builder
	classifier Classifier
	rules      RuleSource
	registry   *agents.Registry
	store      Store
	searcher   knowledge.Searcher
	logger     *zap.Logger
}

// New creates a router. The searcher may be nil; specialists then run
// without deep retrieval.
func New(builder *enrich.Builder, classifier Classifier, rules RuleSource, registry *agents.Registry, store Store, searcher knowledge.Searcher, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		builder:    builder,
		classifier: classifier,
		rules:      rules,
		registry:   registry,
		store:      store,
		searcher:   searcher,
		logger:     logger,
	}
}

// Route runs classification and enforcement without executing any
// specialist. The turn is recorded whenever enforcement produced a
// non-empty sequence.
func (r *Router) Route(ctx context.Context, query, sessionID string) (*Result, error) {
	res, err := r.decide(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}

	if len(res.Sequence) > 0 {
		turn, err := r.store.AppendTurn(res.SessionID, query, res.Intent, res.Sequence)
		if err != nil {
			return nil, fmt.Errorf("failed to record turn: %w", err)
		}
		res.Turn = turn
	}
	return res, nil
}

// decide runs stages 1-3 and leaves persistence to the caller.
func (r *Router) decide(ctx context.Context, query, sessionID string) (*Result, error) {
	ec, err := r.builder.Build(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to build context: %w", err)
	}

	cls := r.classifier.Classify(ctx, ec)

	enf := r.rules.Rules().Evaluate(cls.Intent, ec.ProblemState, ec.DecisionState)

	r.logger.Info("routing decision",
		zap.String("session_id", ec.SessionID),
		zap.String("intent", string(cls.Intent)),
		zap.Float64("confidence", cls.Confidence),
		zap.Any("sequence", enf.Sequence),
		zap.Strings("rules_applied", enf.RulesApplied))

	return &Result{
		Query:         query,
		SessionID:     ec.SessionID,
		Intent:        cls.Intent,
		Confidence:    cls.Confidence,
		Rationale:     cls.Rationale,
		Sequence:      enf.Sequence,
		Warning:       enf.Warning,
		RulesApplied:  enf.RulesApplied,
		ProblemState:  ec.ProblemState,
		DecisionState: ec.DecisionState,
		Context:       ec,
		AgentOutputs:  []*models.AgentOutput{},
	}, nil
}

// Run executes the full pipeline. Specialist failures do not stop the
// sequence; a clarification request does. Session state and the turn
// log are only written when the sequence completes without a halt.
func (r *Router) Run(ctx context.Context, query, sessionID string) (*Result, error) {
	res, err := r.decide(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	if len(res.Sequence) == 0 {
		return res, nil
	}

	rc := models.NewRunContext(res.Context)
	res.AgentOutputs = r.executeSequence(ctx, res.Sequence, query, rc)

	if halt := findClarification(res.AgentOutputs); halt != nil {
		res.NeedsClarification = true
		res.ClarifyingAgent = halt.Agent
		res.ClarifyingQuestions = halt.ClarifyingQuestions
		res.ContextUsed = halt.ContextUsed
		for _, out := range res.AgentOutputs {
			if out.Status == models.StatusPending {
				res.PendingAgents = append(res.PendingAgents, out.Agent)
			}
		}
		// The specialist has not finished its work; nothing persists.
		return res, nil
	}

	// Fold every emitted patch, last write wins.
	var final models.StateUpdates
	for _, out := range res.AgentOutputs {
		if out.StateUpdates.ProblemState != "" {
			final.ProblemState = out.StateUpdates.ProblemState
		}
		if out.StateUpdates.DecisionState != "" {
			final.DecisionState = out.StateUpdates.DecisionState
		}
	}
	if !final.Empty() {
		if err := r.store.UpdateSessionState(res.SessionID, final); err != nil {
			return nil, fmt.Errorf("failed to persist session state: %w", err)
		}
		if final.ProblemState != "" {
			res.ProblemState = final.ProblemState
		}
		if final.DecisionState != "" {
			res.DecisionState = final.DecisionState
		}
	}

	turn, err := r.store.AppendTurn(res.SessionID, query, res.Intent, res.Sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}
	res.Turn = turn

	return res, nil
}

// executeSequence runs the specialists in order, folding state updates
// forward so later agents see what earlier ones established. An
// unknown name or a failed run yields an error output and the sequence
// continues; a clarification request marks the rest pending and stops.
func (r *Router) executeSequence(ctx context.Context, sequence []models.AgentName, query string, rc *models.RunContext) []*models.AgentOutput {
	outputs := make([]*models.AgentOutput, 0, len(sequence))

	for i, name := range sequence {
		agent, ok := r.registry.Get(name)
		if !ok {
			r.logger.Warn("unknown agent in sequence", zap.String("agent", string(name)))
			outputs = append(outputs, models.ErrorOutput(name, fmt.Sprintf("agent %q not found", name)))
			continue
		}

		out, err := agent.Run(ctx, query, rc, r.searcher)
		if err != nil {
			r.logger.Error("agent failed",
				zap.String("agent", string(name)),
				zap.Error(err))
			outputs = append(outputs, models.ErrorOutput(name, err.Error()))
			continue
		}
		outputs = append(outputs, out)

		if out.Status == models.StatusNeedsClarification {
			for _, pending := range sequence[i+1:] {
				outputs = append(outputs, models.PendingOutput(pending))
			}
			break
		}

		rc.Apply(out.StateUpdates)
	}

	return outputs
}

func findClarification(outputs []*models.AgentOutput) *models.AgentOutput {
	for _, out := range outputs {
		if out.Status == models.StatusNeedsClarification {
			return out
		}
	}
	return nil
}
