// Package classify maps a PM query to the specialist being asked for.
// Classification is best-effort by contract: every failure mode folds
// into a low-confidence diagnosis default rather than an error.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/compass-pm/compass/internal/llm"
	"github.com/compass-pm/compass/pkg/models"
)

const classifierMaxTokens = 256

// Number of recent turn digests included in the classifier prompt.
const promptTurnLimit = 5

const systemPrompt = `You are an intent classifier for an e-commerce PM assistant.

Given a query from a Product Manager, determine which specialist they are asking for.

Specialists:
- diagnosis: Diagnose problems (conversion drops, cart abandonment, why something happened, root cause analysis, understanding dynamics)
- strategy: Make decisions (prioritize, choose between options, trade-offs, frameworks, resource allocation)
- alignment: Handle stakeholders (get buy-in, manage objections, RACI, navigate conversations, prepare talking points)
- execution: Ship things (MVP scope, launch checklist, blockers, rollout plans, deploy)
- narration: Communicate (summaries, pitches, exec updates, stories about completed work)
- competitive-intel: Competitive intel (what competitors are doing, battlecards, market positioning)

IMPORTANT RULES:
1. Classify based on what the user is ASKING FOR, not what they SHOULD do.
2. If they ask "Ship a feature to fix conversion" they are asking for execution, even if diagnosis should come first.
3. If the query mentions a PROBLEM that has not been diagnosed (metrics dropping, things broken, "don't understand why"), lean toward diagnosis.
4. If the query is not related to e-commerce product management at all, respond with intent "none".
5. Empty or meaningless queries should get intent "diagnosis" with low confidence.

Respond ONLY with valid JSON (no markdown fences):
{
    "intent": "<specialist name or none>",
    "confidence": <0.0-1.0>,
    "rationale": "<brief explanation>"
}`

var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```\\s*$")

// Classifier turns enriched queries into intent labels.
type Classifier struct {
	gen    llm.Generator
	logger *zap.Logger
}

// New creates a classifier backed by the given generator.
func New(gen llm.Generator, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{gen: gen, logger: logger}
}

// Classify determines the intent of the enriched query. It never
// returns an error: provider and parse failures degrade to a
// diagnosis default with confidence 0.3.
func (c *Classifier) Classify(ctx context.Context, ec *models.EnrichedContext) models.Classification {
	query := strings.TrimSpace(ec.Query)
	if query == "" {
		return models.Classification{
			Intent:     models.AgentDiagnosis,
			Confidence: 0.3,
			Rationale:  "empty query, defaulting to diagnosis for clarification",
		}
	}

	raw, err := c.gen.Generate(ctx, llm.Request{
		System:    systemPrompt,
		Messages:  []llm.Message{{Role: "user", Content: buildPrompt(ec, query)}},
		MaxTokens: classifierMaxTokens,
	})
	if err != nil {
		c.logger.Warn("classifier call failed, using default intent",
			zap.String("session_id", ec.SessionID),
			zap.Error(err))
		return models.Classification{
			Intent:     models.AgentDiagnosis,
			Confidence: 0.3,
			Rationale:  fmt.Sprintf("classifier unavailable: %v", err),
		}
	}

	return parseResponse(raw)
}

// buildPrompt renders the user message: session context first, raw
// query last.
func buildPrompt(ec *models.EnrichedContext, query string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session state: problem_state=%s decision_state=%s\n", ec.ProblemState, ec.DecisionState)
	fmt.Fprintf(&b, "Topic: %s\n", ec.Topic)
	if len(ec.Metrics) > 0 {
		fmt.Fprintf(&b, "Metrics mentioned: %s\n", strings.Join(ec.Metrics, ", "))
	}

	turns := ec.PriorTurns
	if len(turns) > promptTurnLimit {
		turns = turns[len(turns)-promptTurnLimit:]
	}
	if len(turns) > 0 {
		b.WriteString("Recent turns:\n")
		for _, t := range turns {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", t.Turn, t.Intent, t.Query)
		}
	}

	if ec.KnowledgeSummary != "" {
		fmt.Fprintf(&b, "Background:\n%s\n", ec.KnowledgeSummary)
	}

	fmt.Fprintf(&b, "\nQuery: %s", query)
	return b.String()
}

// classifierReply mirrors the JSON the model is instructed to emit.
type classifierReply struct {
	Intent     string          `json:"intent"`
	Confidence json.RawMessage `json:"confidence"`
	Rationale  string          `json:"rationale"`
}

// parseResponse parses the model reply, folding every malformation
// into a usable classification.
func parseResponse(raw string) models.Classification {
	cleaned := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}

	var reply classifierReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return models.Classification{
			Intent:     models.AgentDiagnosis,
			Confidence: 0.3,
			Rationale:  "failed to parse classifier response: " + truncate(raw, 120),
		}
	}

	intent := models.AgentName(strings.ToLower(strings.TrimSpace(reply.Intent)))
	if intent != models.IntentNone && !intent.Valid() {
		intent = models.AgentDiagnosis
	}

	confidence := 0.5
	if len(reply.Confidence) > 0 {
		var f float64
		if err := json.Unmarshal(reply.Confidence, &f); err == nil {
			confidence = f
		}
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return models.Classification{
		Intent:     intent,
		Confidence: confidence,
		Rationale:  reply.Rationale,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
