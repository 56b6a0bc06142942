package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/compass-pm/compass/internal/agents"
	"github.com/compass-pm/compass/internal/classify"
	"github.com/compass-pm/compass/internal/config"
	"github.com/compass-pm/compass/internal/enrich"
	"github.com/compass-pm/compass/internal/knowledge"
	"github.com/compass-pm/compass/internal/llm"
	"github.com/compass-pm/compass/internal/router"
	"github.com/compass-pm/compass/internal/state"
	"github.com/compass-pm/compass/internal/workflow"
)

// app bundles the wired pipeline and everything that needs closing.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *state.DB
	kb     *knowledge.Store
	router *router.Router

	rulesWatcher *workflow.Watcher
}

// newApp wires the full pipeline from configuration.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	statePath := cfg.Storage.StatePath
	if statePath == "" {
		statePath = state.DefaultDBPath()
	}
	store, err := state.Open(statePath)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating state store: %w", err)
	}

	kbPath := cfg.Storage.KnowledgePath
	if kbPath == "" {
		kbPath = knowledge.DefaultDBPath()
	}
	kb, err := knowledge.NewStore(kbPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening knowledge store: %w", err)
	}
	if err := kb.Migrate(); err != nil {
		kb.Close()
		store.Close()
		return nil, fmt.Errorf("migrating knowledge store: %w", err)
	}

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		kb.Close()
		store.Close()
		return nil, err
	}

	rulesPath := ""
	if cfg.Rules.Watch {
		rulesPath = cfg.Rules.Path
	}
	var rules router.RuleSource
	var watcher *workflow.Watcher
	if cfg.Rules.Path != "" && !cfg.Rules.Watch {
		rs, err := workflow.LoadFile(cfg.Rules.Path)
		if err != nil {
			kb.Close()
			store.Close()
			return nil, fmt.Errorf("loading rules: %w", err)
		}
		rules = router.StaticRules(rs)
	} else {
		watcher, err = workflow.NewWatcher(rulesPath, logger)
		if err != nil {
			kb.Close()
			store.Close()
			return nil, fmt.Errorf("loading rules: %w", err)
		}
		rules = watcher
	}

	searcher := knowledge.NewRetriever(kb, logger)

	r := router.New(
		enrich.NewBuilder(store, searcher, logger),
		classify.New(gen, logger),
		rules,
		agents.NewRegistry(gen, logger),
		store,
		searcher,
		logger,
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		kb:           kb,
		router:       r,
		rulesWatcher: watcher,
	}, nil
}

// Close releases the stores and flushes the logger.
func (a *app) Close() {
	if a.rulesWatcher != nil {
		a.rulesWatcher.Close()
	}
	a.kb.Close()
	a.store.Close()
	a.logger.Sync()
}

// newGenerator builds the model client chain: one generator per
// configured model, each behind its own breaker, with failover from
// the primary through the fallbacks in order.
func newGenerator(cfg *config.Config, logger *zap.Logger) (llm.Generator, error) {
	apiKey := ""
	if !cfg.Anthropic.UseAWSBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("no model credentials: %w (set ANTHROPIC_API_KEY or enable Bedrock)", err)
		}
		apiKey = key
	}

	build := func(model string) (llm.Generator, error) {
		gen, err := llm.NewAnthropicGenerator(llm.AnthropicConfig{
			Model:         anthropic.Model(model),
			APIKey:        apiKey,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			return nil, fmt.Errorf("building model client for %q: %w", model, err)
		}
		if !cfg.Breaker.Enabled {
			return gen, nil
		}
		return llm.NewBreakerGenerator(gen, llm.BreakerConfig{
			MaxFailures: cfg.Breaker.MaxFailures,
			Timeout:     cfg.Breaker.Timeout,
			Interval:    cfg.Breaker.Interval,
		}, logger), nil
	}

	primary, err := build(cfg.Anthropic.Model)
	if err != nil {
		return nil, err
	}
	if len(cfg.Anthropic.FallbackModels) == 0 {
		return primary, nil
	}

	fallbacks := make([]llm.Generator, 0, len(cfg.Anthropic.FallbackModels))
	for _, model := range cfg.Anthropic.FallbackModels {
		gen, err := build(model)
		if err != nil {
			return nil, err
		}
		fallbacks = append(fallbacks, gen)
	}
	return llm.NewFailoverGenerator(primary, fallbacks, logger), nil
}

// newLogger builds the zap logger per config. Console format uses the
// development encoder; json uses production.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	return zc.Build()
}

// openStateStore opens just the state store, for commands that do not
// need the full pipeline.
func openStateStore() (*state.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	path := cfg.Storage.StatePath
	if path == "" {
		path = state.DefaultDBPath()
	}
	db, err := state.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openKnowledgeStore opens just the knowledge store.
func openKnowledgeStore() (*knowledge.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	path := cfg.Storage.KnowledgePath
	if path == "" {
		path = knowledge.DefaultDBPath()
	}
	kb, err := knowledge.NewStore(path)
	if err != nil {
		return nil, err
	}
	if err := kb.Migrate(); err != nil {
		kb.Close()
		return nil, err
	}
	return kb, nil
}
