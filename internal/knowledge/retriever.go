package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/compass-pm/compass/pkg/models"
)

// Collection names for the knowledge base.
const (
	CollectionIndustry  = "industry_context"
	CollectionCompany   = "company_context"
	CollectionDecisions = "decision_history"
	CollectionIntel     = "competitive_intel"
	CollectionPlaybooks = "pm_playbooks"
)

// agentCollections maps each specialist to the collections its role is
// allowed to consult. Agents outside the map fall back to the company
// collection only.
var agentCollections = map[models.AgentName][]string{
	models.AgentDiagnosis:       {CollectionIndustry, CollectionCompany},
	models.AgentCompetitiveIntel: {CollectionIntel, CollectionIndustry},
	models.AgentStrategy:        {CollectionDecisions, CollectionCompany, CollectionIntel},
	models.AgentAlignment:       {CollectionCompany},
	models.AgentExecution:       {CollectionCompany, CollectionPlaybooks},
	models.AgentNarration:       {CollectionCompany, CollectionDecisions},
}

// Hit is a single retrieval match.
type Hit struct {
	ID         string  `json:"id"`
	Collection string  `json:"collection"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
}

// Result is the outcome of one retrieval pass.
type Result struct {
	// Summary is an LLM-ready text block. Empty when nothing matched.
	Summary string `json:"summary"`
	// Hits are the raw matches the summary was built from.
	Hits []Hit `json:"raw_hits,omitempty"`
	// Structured carries topic-scoped context keyed by document title.
	Structured map[string]string `json:"structured_context,omitempty"`
}

// Searcher is the retrieval capability handed to specialists and the
// context builder. An uninitialized or empty index yields empty
// results, never an error.
type Searcher interface {
	Retrieve(ctx context.Context, agent models.AgentName, query, topic string, n int) (*Result, error)
}

// Retriever answers agent-scoped retrieval queries against a Store.
type Retriever struct {
	store  *Store
	logger *zap.Logger
}

// NewRetriever creates a Retriever. A nil logger is replaced with a no-op.
func NewRetriever(store *Store, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, logger: logger}
}

var _ Searcher = (*Retriever)(nil)

// Retrieve searches the agent's collections for documents matching the
// query and assembles a short summary. Topic-tagged documents are added
// as structured context. An empty index returns an empty Result.
func (r *Retriever) Retrieve(ctx context.Context, agent models.AgentName, query, topic string, n int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 5
	}

	collections, ok := agentCollections[agent]
	if !ok {
		collections = []string{CollectionCompany}
	}

	match := ftsQuery(query)
	var docs []*Document
	if match != "" {
		var err error
		docs, err = r.store.Search(match, collections, n)
		if err != nil {
			return nil, fmt.Errorf("retrieve for %s: %w", agent, err)
		}
	}

	result := &Result{}
	for _, d := range docs {
		result.Hits = append(result.Hits, Hit{
			ID:         d.ID,
			Collection: d.Collection,
			Title:      d.Title,
			Snippet:    snippet(d.Body, 240),
		})
	}

	if topic != "" && topic != "general" {
		topical, err := r.store.ListByTopic(topic, 3)
		if err != nil {
			return nil, fmt.Errorf("topic context for %s: %w", topic, err)
		}
		if len(topical) > 0 {
			result.Structured = make(map[string]string, len(topical))
			for _, d := range topical {
				result.Structured[d.Title] = snippet(d.Body, 240)
			}
		}
	}

	result.Summary = buildSummary(agent, result)
	r.logger.Debug("knowledge retrieval",
		zap.String("agent", string(agent)),
		zap.String("topic", topic),
		zap.Int("hits", len(result.Hits)),
	)
	return result, nil
}

// buildSummary renders hits and structured context into one text block.
func buildSummary(agent models.AgentName, res *Result) string {
	if len(res.Hits) == 0 && len(res.Structured) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Knowledge context for %s:\n", agent)
	for _, h := range res.Hits {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", h.Collection, h.Title, h.Snippet)
	}
	for title, text := range res.Structured {
		fmt.Fprintf(&b, "- (topic) %s: %s\n", title, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_-]*`)

// ftsQuery turns free text into an OR-joined FTS5 match expression.
// Returns "" when the text contains no searchable words.
func ftsQuery(text string) string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	var terms []string
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, fmt.Sprintf("%q", w))
	}
	return strings.Join(terms, " OR ")
}

func snippet(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
