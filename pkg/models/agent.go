// Package models defines the shared domain types for Compass:
// the specialist roster, session state enumerations, classification
// results, and structured agent outputs.
package models

// AgentName identifies a specialist agent in the fixed roster.
type AgentName string

const (
	// AgentDiagnosis frames and root-causes ambiguous product problems.
	AgentDiagnosis AgentName = "diagnosis"
	// AgentCompetitiveIntel gathers competitor and market intelligence.
	AgentCompetitiveIntel AgentName = "competitive-intel"
	// AgentStrategy makes prioritization and trade-off decisions.
	AgentStrategy AgentName = "strategy"
	// AgentAlignment handles stakeholder buy-in and objection mapping.
	AgentAlignment AgentName = "alignment"
	// AgentExecution scopes MVPs and produces launch plans.
	AgentExecution AgentName = "execution"
	// AgentNarration turns outcomes into exec-ready communication.
	AgentNarration AgentName = "narration"

	// IntentNone is the classifier's label for queries outside the
	// product-management domain. It is not a runnable agent.
	IntentNone AgentName = "none"
)

// Roster is the closed set of runnable specialists in canonical
// workflow order. Agents earlier in the roster run first; enforced
// sequences are always re-sorted into this order.
var Roster = []AgentName{
	AgentDiagnosis,
	AgentCompetitiveIntel,
	AgentStrategy,
	AgentAlignment,
	AgentExecution,
	AgentNarration,
}

// Valid returns true if the name is a runnable roster agent.
func (a AgentName) Valid() bool {
	for _, name := range Roster {
		if a == name {
			return true
		}
	}
	return false
}

// RosterIndex returns the agent's position in the canonical order,
// or len(Roster) for names outside the roster so they sort last.
func RosterIndex(a AgentName) int {
	for i, name := range Roster {
		if a == name {
			return i
		}
	}
	return len(Roster)
}

// SortCanonical re-orders a sequence of agent names into the canonical
// workflow order. The sort is deterministic regardless of insertion
// order and preserves nothing of the input ordering.
func SortCanonical(sequence []AgentName) []AgentName {
	sorted := make([]AgentName, 0, len(sequence))
	for _, name := range Roster {
		for _, a := range sequence {
			if a == name {
				sorted = append(sorted, a)
				break
			}
		}
	}
	// Names outside the roster keep their relative order at the tail.
	for _, a := range sequence {
		if !a.Valid() {
			sorted = append(sorted, a)
		}
	}
	return sorted
}
