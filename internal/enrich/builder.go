// Package enrich builds the per-query enriched context: session state,
// recent turn history, topic inference, metric extraction, and a broad
// best-effort knowledge summary for the classifier prompt.
package enrich

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/compass-pm/compass/internal/knowledge"
	"github.com/compass-pm/compass/internal/state"
	"github.com/compass-pm/compass/pkg/models"
)

// Number of prior turns carried into the enriched context.
const priorTurnLimit = 10

// Broad retrieval depth for the classifier-stage knowledge summary.
const broadRetrievalDepth = 3

// topicKeywords maps each topic label to the phrases that vote for it.
// The label with the most distinct phrase matches wins; ties keep the
// earlier winner and no match at all yields "general".
var topicKeywords = []struct {
	label    string
	keywords []string
}{
	{"conversion", []string{"conversion", "convert", "checkout", "funnel", "drop-off"}},
	{"cart_abandonment", []string{"cart abandon", "abandoned cart", "cart drop"}},
	{"retention", []string{"retention", "repeat purchase", "churn", "loyalty", "returning"}},
	{"checkout", []string{"checkout", "payment", "purchase flow"}},
	{"search_discovery", []string{"search", "discovery", "finding products", "browse"}},
	{"pdp", []string{"product page", "pdp", "product detail", "bounce rate"}},
	{"pricing", []string{"price", "pricing", "aov", "discount", "margin", "promo"}},
	{"cac", []string{"cac", "acquisition cost", "cost per", "paid", "ad spend"}},
	{"mobile", []string{"mobile", "app", "responsive", "pwa"}},
	{"logistics", []string{"shipping", "delivery", "fulfillment", "returns", "return rate"}},
	{"competitive", []string{"competitor", "amazon", "shopify", "asos", "zappos", "walmart", "shein"}},
	{"campaign", []string{"black friday", "holiday", "campaign", "sale", "launch"}},
}

// metricPattern pulls out percentage or plain numeric mentions,
// including "X to Y" ranges.
var metricPattern = regexp.MustCompile(`(\b\d+(?:\.\d+)?%?)\s*(?:to\s+(\d+(?:\.\d+)?%?\b))?`)

// SessionReader is the slice of the state store the builder needs.
type SessionReader interface {
	GetOrCreateSession(id string) (*state.Session, error)
	GetRecentTurns(sessionID string, limit int) ([]state.Turn, error)
}

// Builder assembles enriched contexts. A nil searcher disables the
// knowledge summary without error.
type Builder struct {
	store    SessionReader
	searcher knowledge.Searcher
	logger   *zap.Logger
}

// NewBuilder creates a context builder.
func NewBuilder(store SessionReader, searcher knowledge.Searcher, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: store, searcher: searcher, logger: logger}
}

// Build enriches a raw query for the given session. The session is
// created when it does not exist, so the returned context always
// carries a live session id and its current state enums. Knowledge
// retrieval is best-effort: a failure logs a warning and leaves the
// summary empty.
func (b *Builder) Build(ctx context.Context, query, sessionID string) (*models.EnrichedContext, error) {
	sess, err := b.store.GetOrCreateSession(sessionID)
	if err != nil {
		return nil, err
	}

	turns, err := b.store.GetRecentTurns(sess.ID, priorTurnLimit)
	if err != nil {
		return nil, err
	}
	digests := make([]models.TurnDigest, 0, len(turns))
	for _, t := range turns {
		digests = append(digests, models.TurnDigest{
			Turn:     t.TurnNumber,
			Query:    t.Query,
			Intent:   t.Intent,
			Sequence: t.Sequence,
		})
	}

	topic := InferTopic(query)

	ec := &models.EnrichedContext{
		Query:         query,
		SessionID:     sess.ID,
		ProblemState:  sess.ProblemState,
		DecisionState: sess.DecisionState,
		Topic:         topic,
		Metrics:       ExtractMetrics(query),
		PriorTurns:    digests,
	}

	if b.searcher != nil {
		// Broad diagnosis-scoped retrieval; agent-specific retrieval
		// happens later once intent is classified.
		res, err := b.searcher.Retrieve(ctx, models.AgentDiagnosis, query, topic, broadRetrievalDepth)
		if err != nil {
			b.logger.Warn("knowledge retrieval failed, continuing without summary",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		} else if res != nil {
			ec.KnowledgeSummary = res.Summary
		}
	}

	return ec, nil
}

// InferTopic returns the best-matching topic label for the query text,
// or "general" when no keyword matches.
func InferTopic(query string) string {
	q := strings.ToLower(query)
	best := "general"
	bestCount := 0
	for _, entry := range topicKeywords {
		count := 0
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = entry.label
		}
	}
	return best
}

// ExtractMetrics pulls raw numeric mentions out of the query text,
// in order of appearance. Values keep their surface form ("2.8%",
// "40"); no unit normalization is applied.
func ExtractMetrics(query string) []string {
	var values []string
	for _, groups := range metricPattern.FindAllStringSubmatch(query, -1) {
		for _, g := range groups[1:] {
			if g != "" {
				values = append(values, g)
			}
		}
	}
	return values
}
