// Package agents holds the six PM specialists and the shared execution
// machinery behind them. Every specialist is prompt plus parsing: one
// role-scoped knowledge retrieval, one model call, one structured
// output. The sequencing above them lives in internal/router.
package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/compass-pm/compass/internal/knowledge"
	"github.com/compass-pm/compass/internal/llm"
	"github.com/compass-pm/compass/pkg/models"
)

// Agent is one PM specialist. Run never returns a nil output on a nil
// error.
type Agent interface {
	// Name is the roster name the specialist answers to.
	Name() models.AgentName
	// Run executes the specialist against the live run context. The
	// searcher may be nil; retrieval then degrades to no background.
	Run(ctx context.Context, query string, rc *models.RunContext, kb knowledge.Searcher) (*models.AgentOutput, error)
}

// Registry maps roster names to specialist instances. It is built once
// and read-only afterwards.
type Registry struct {
	agents map[models.AgentName]Agent
}

// NewRegistry builds the full specialist roster against one generator.
func NewRegistry(gen llm.Generator, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{agents: make(map[models.AgentName]Agent, len(specialists))}
	for _, spec := range specialists {
		r.agents[spec.name] = &specialist{
			spec:   spec,
			gen:    gen,
			logger: logger.With(zap.String("agent", string(spec.name))),
		}
	}
	return r
}

// Get looks up a specialist by name. The second return is false for
// names outside the roster.
func (r *Registry) Get(name models.AgentName) (Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns the registered roster in canonical order.
func (r *Registry) Names() []models.AgentName {
	names := make([]models.AgentName, 0, len(r.agents))
	for _, n := range models.Roster {
		if _, ok := r.agents[n]; ok {
			names = append(names, n)
		}
	}
	return names
}
