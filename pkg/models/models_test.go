package models

import (
	"reflect"
	"testing"
)

func TestAgentNameValid(t *testing.T) {
	for _, name := range Roster {
		if !name.Valid() {
			t.Errorf("roster agent %q should be valid", name)
		}
	}
	for _, name := range []AgentName{IntentNone, "", "wizard", "Framer"} {
		if name.Valid() {
			t.Errorf("%q should not be a runnable agent", name)
		}
	}
}

func TestSortCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   []AgentName
		want []AgentName
	}{
		{
			"reversed pair",
			[]AgentName{AgentExecution, AgentDiagnosis},
			[]AgentName{AgentDiagnosis, AgentExecution},
		},
		{
			"full roster shuffled",
			[]AgentName{AgentNarration, AgentStrategy, AgentDiagnosis, AgentExecution, AgentCompetitiveIntel, AgentAlignment},
			Roster,
		},
		{
			"already sorted",
			[]AgentName{AgentDiagnosis, AgentStrategy},
			[]AgentName{AgentDiagnosis, AgentStrategy},
		},
		{
			"unknown names sort last",
			[]AgentName{"wizard", AgentStrategy, AgentDiagnosis},
			[]AgentName{AgentDiagnosis, AgentStrategy, "wizard"},
		},
		{
			"empty",
			[]AgentName{},
			[]AgentName{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortCanonical(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortCanonical(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStateUpdates(t *testing.T) {
	if !(StateUpdates{}).Empty() {
		t.Error("zero patch should be empty")
	}
	if (StateUpdates{ProblemState: ProblemFramed}).Empty() {
		t.Error("patch with problem state should not be empty")
	}
}

func TestRunContextApply(t *testing.T) {
	rc := NewRunContext(&EnrichedContext{
		ProblemState:  ProblemUndefined,
		DecisionState: DecisionNone,
	})

	rc.Apply(StateUpdates{ProblemState: ProblemFramed})
	if rc.ProblemState != ProblemFramed || rc.DecisionState != DecisionNone {
		t.Errorf("after first patch: %s/%s", rc.ProblemState, rc.DecisionState)
	}

	rc.Apply(StateUpdates{DecisionState: DecisionDecided})
	if rc.ProblemState != ProblemFramed || rc.DecisionState != DecisionDecided {
		t.Errorf("after second patch: %s/%s", rc.ProblemState, rc.DecisionState)
	}

	// Empty patch changes nothing.
	rc.Apply(StateUpdates{})
	if rc.ProblemState != ProblemFramed || rc.DecisionState != DecisionDecided {
		t.Errorf("after empty patch: %s/%s", rc.ProblemState, rc.DecisionState)
	}
}
