package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/compass-pm/compass/internal/knowledge"
	"github.com/compass-pm/compass/internal/llm"
	"github.com/compass-pm/compass/pkg/models"
)

const (
	agentMaxTokens    = 2048
	agentTemperature  = 0.3
	deepRetrievalN    = 5
	promptTurnLimit   = 5
	defaultConfidence = 0.8
)

// stateFunc extracts a session-state patch from a specialist's parsed
// output. Called only for successful outputs.
type stateFunc func(primary map[string]any) models.StateUpdates

// spec is the static definition of one specialist: its prompt and how
// its output maps back onto session state.
type spec struct {
	name         models.AgentName
	systemPrompt string
	extractState stateFunc
}

// specialist is the shared runner bound to one spec.
type specialist struct {
	spec   spec
	gen    llm.Generator
	logger *zap.Logger
}

func (s *specialist) Name() models.AgentName { return s.spec.name }

// Run performs the deep role-scoped retrieval, the model call, and the
// structured-output parse. Retrieval failures degrade to an empty
// knowledge block; a model failure is the only error path.
func (s *specialist) Run(ctx context.Context, query string, rc *models.RunContext, kb knowledge.Searcher) (*models.AgentOutput, error) {
	kbContext := ""
	if kb != nil {
		res, err := kb.Retrieve(ctx, s.spec.name, query, rc.Enriched.Topic, deepRetrievalN)
		if err != nil {
			s.logger.Warn("knowledge retrieval failed, running without background", zap.Error(err))
		} else if res != nil {
			kbContext = res.Summary
		}
	}
	if kbContext == "" {
		kbContext = "No additional context available."
	}

	raw, err := s.gen.Generate(ctx, llm.Request{
		System:      strings.ReplaceAll(s.spec.systemPrompt, "{kb_context}", kbContext),
		Messages:    []llm.Message{{Role: "user", Content: buildUserMessage(query, rc)}},
		MaxTokens:   agentMaxTokens,
		Temperature: agentTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", s.spec.name, err)
	}

	primary, parseErr := parseJSONOutput(raw)
	if parseErr != nil {
		s.logger.Warn("output parse failed, keeping raw text", zap.Error(parseErr))
		return &models.AgentOutput{
			Agent:      s.spec.name,
			Status:     models.StatusSuccess,
			Primary:    map[string]any{"raw": raw, "parse_error": parseErr.Error()},
			Confidence: defaultConfidence,
		}, nil
	}

	out := &models.AgentOutput{
		Agent:      s.spec.name,
		Status:     models.StatusSuccess,
		Primary:    primary,
		NextAgent:  nextAgentFrom(primary),
		Confidence: confidenceFrom(primary),
	}

	if questions := stringSlice(primary["clarifying_questions"]); len(questions) > 0 {
		out.Status = models.StatusNeedsClarification
		out.ClarifyingQuestions = questions
		out.ContextUsed = stringSlice(primary["context_used"])
		return out, nil
	}

	if s.spec.extractState != nil {
		out.StateUpdates = s.spec.extractState(primary)
	}
	return out, nil
}

// buildUserMessage assembles the user prompt: query first, then the
// session context the specialist is expected to exhaust before asking
// the user anything.
func buildUserMessage(query string, rc *models.RunContext) string {
	var b strings.Builder
	ec := rc.Enriched

	fmt.Fprintf(&b, "## Query\n%s\n", query)
	fmt.Fprintf(&b, "\n## Session State\n- Problem state: %s\n- Decision state: %s\n- Topic: %s\n",
		rc.ProblemState, rc.DecisionState, ec.Topic)

	if len(ec.Metrics) > 0 {
		fmt.Fprintf(&b, "- Mentioned values: %s\n", strings.Join(ec.Metrics, ", "))
	}

	turns := ec.PriorTurns
	if len(turns) > promptTurnLimit {
		turns = turns[len(turns)-promptTurnLimit:]
	}
	if len(turns) > 0 {
		b.WriteString("\n## Prior Turns\n")
		for _, t := range turns {
			fmt.Fprintf(&b, "- [%s] %s\n", t.Intent, t.Query)
		}
	}

	return b.String()
}

// parseJSONOutput extracts a JSON object from the model reply,
// tolerating markdown fences.
func parseJSONOutput(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nextAgentFrom(primary map[string]any) models.AgentName {
	s, _ := primary["next_agent"].(string)
	name := models.AgentName(strings.ToLower(strings.TrimSpace(s)))
	if name.Valid() {
		return name
	}
	return ""
}

func confidenceFrom(primary map[string]any) float64 {
	f, ok := primary["confidence"].(float64)
	if !ok {
		return defaultConfidence
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
