// Package workflow is the rules engine that turns a classified intent
// into an enforced agent sequence. Rules are declarative IF/THEN
// records: match on session state and intent, then prepend or append
// a specialist. The engine itself has no opinions; all sequencing
// policy lives in the rule table.
package workflow

import (
	"fmt"

	"github.com/compass-pm/compass/pkg/models"
)

// Condition is the IF side of a rule. Set fields must all match; zero
// fields are ignored.
type Condition struct {
	// ProblemState matches the session's problem state exactly.
	ProblemState models.ProblemState `yaml:"problem_state,omitempty"`
	// DecisionState matches the session's decision state exactly.
	DecisionState models.DecisionState `yaml:"decision_state,omitempty"`
	// Intent matches the classified intent exactly.
	Intent models.AgentName `yaml:"intent,omitempty"`
	// IntentIn matches when the classified intent is any listed agent.
	IntentIn []models.AgentName `yaml:"intent_in,omitempty"`
}

// Action is the THEN side of a rule. Inserts are idempotent: an agent
// already in the sequence is never added twice.
type Action struct {
	Prepend models.AgentName `yaml:"prepend,omitempty"`
	Append  models.AgentName `yaml:"append,omitempty"`
}

// Rule is one IF/THEN sequencing rule.
type Rule struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Condition Condition `yaml:"condition"`
	Action    Action    `yaml:"action"`
	// Warning is surfaced to the user when the rule fires. Only the
	// first firing rule's warning is kept.
	Warning string `yaml:"warning,omitempty"`
}

// Matches reports whether the rule's condition holds for the given
// intent and session state.
func (c Condition) Matches(intent models.AgentName, problem models.ProblemState, decision models.DecisionState) bool {
	if c.ProblemState != "" && problem != c.ProblemState {
		return false
	}
	if c.DecisionState != "" && decision != c.DecisionState {
		return false
	}
	if c.Intent != "" && intent != c.Intent {
		return false
	}
	if len(c.IntentIn) > 0 {
		found := false
		for _, a := range c.IntentIn {
			if intent == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Enforcement is the outcome of evaluating the rule table.
type Enforcement struct {
	// Sequence is the ordered list of specialists to run. Empty when
	// the query is out of scope.
	Sequence []models.AgentName `json:"sequence"`
	// Warning explains the first sequencing correction, if any.
	Warning string `json:"warning,omitempty"`
	// RulesApplied lists the ids of every rule that fired, in table
	// order.
	RulesApplied []string `json:"rules_applied"`
}

// RuleSet is an immutable, validated rule table. Replace the whole set
// to change rules; never mutate one in place.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates and wraps a rule table. Every referenced agent
// must be on the roster and every rule needs an id.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d: missing id", i)
		}
		if err := validAgentRef(r.Action.Prepend); err != nil {
			return nil, fmt.Errorf("rule %s: prepend: %w", r.ID, err)
		}
		if err := validAgentRef(r.Action.Append); err != nil {
			return nil, fmt.Errorf("rule %s: append: %w", r.ID, err)
		}
		if err := validAgentRef(r.Condition.Intent); err != nil {
			return nil, fmt.Errorf("rule %s: condition intent: %w", r.ID, err)
		}
		for _, a := range r.Condition.IntentIn {
			if err := validAgentRef(a); err != nil {
				return nil, fmt.Errorf("rule %s: condition intent_in: %w", r.ID, err)
			}
		}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &RuleSet{rules: out}, nil
}

func validAgentRef(a models.AgentName) error {
	if a == "" || a.Valid() {
		return nil
	}
	return fmt.Errorf("unknown agent %q", a)
}

// Rules returns a copy of the rule table.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Evaluate applies every rule to the classified intent and session
// state and returns the enforced sequence. An intent of "none" yields
// an empty sequence with an out-of-scope warning. All matching rules
// fire; the final sequence is sorted into canonical workflow order.
func (rs *RuleSet) Evaluate(intent models.AgentName, problem models.ProblemState, decision models.DecisionState) Enforcement {
	if intent == "" || intent == models.IntentNone {
		return Enforcement{
			Sequence:     []models.AgentName{},
			Warning:      "This query doesn't appear to be an e-commerce PM task.",
			RulesApplied: []string{},
		}
	}

	sequence := []models.AgentName{intent}
	warning := ""
	applied := []string{}

	for _, rule := range rs.rules {
		if !rule.Condition.Matches(intent, problem, decision) {
			continue
		}
		if p := rule.Action.Prepend; p != "" && !contains(sequence, p) {
			sequence = append([]models.AgentName{p}, sequence...)
		}
		if a := rule.Action.Append; a != "" && !contains(sequence, a) {
			sequence = append(sequence, a)
		}
		if warning == "" && rule.Warning != "" {
			warning = rule.Warning
		}
		applied = append(applied, rule.ID)
	}

	return Enforcement{
		Sequence:     models.SortCanonical(sequence),
		Warning:      warning,
		RulesApplied: applied,
	}
}

func contains(seq []models.AgentName, a models.AgentName) bool {
	for _, s := range seq {
		if s == a {
			return true
		}
	}
	return false
}

// DefaultRules is the built-in sequencing policy.
func DefaultRules() *RuleSet {
	rs, err := NewRuleSet([]Rule{
		{
			ID:   "R-01",
			Name: "Undefined problem requires diagnosis",
			Condition: Condition{
				ProblemState: models.ProblemUndefined,
				IntentIn: []models.AgentName{
					models.AgentStrategy,
					models.AgentExecution,
					models.AgentNarration,
					models.AgentAlignment,
				},
			},
			Action:  Action{Prepend: models.AgentDiagnosis},
			Warning: "Let's first understand the problem before proceeding.",
		},
		{
			ID:   "R-02",
			Name: "No decision requires strategy",
			Condition: Condition{
				DecisionState: models.DecisionNone,
				IntentIn: []models.AgentName{
					models.AgentExecution,
					models.AgentNarration,
				},
			},
			Action:  Action{Prepend: models.AgentStrategy},
			Warning: "Let's decide on the approach before proceeding.",
		},
		{
			ID:   "R-03",
			Name: "Competitive intel feeds strategy",
			Condition: Condition{
				Intent: models.AgentCompetitiveIntel,
			},
			Action: Action{Append: models.AgentStrategy},
		},
		{
			ID:   "R-04",
			Name: "Alignment needs decision context",
			Condition: Condition{
				DecisionState: models.DecisionNone,
				Intent:        models.AgentAlignment,
			},
			Action:  Action{Prepend: models.AgentStrategy},
			Warning: "Let's clarify the decision before aligning stakeholders.",
		},
	})
	if err != nil {
		panic(err) // built-in table is static
	}
	return rs
}
