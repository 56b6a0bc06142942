package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var _ Generator = (*FailoverGenerator)(nil)

// FailoverGenerator wraps a primary generator with fallback generators.
// If the primary fails, each fallback is tried in order.
type FailoverGenerator struct {
	primary   Generator
	fallbacks []Generator
	logger    *zap.Logger
}

// NewFailoverGenerator creates a failover-capable generator.
func NewFailoverGenerator(primary Generator, fallbacks []Generator, logger *zap.Logger) *FailoverGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailoverGenerator{
		primary:   primary,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Generate tries the primary generator first, then each fallback on failure.
func (f *FailoverGenerator) Generate(ctx context.Context, req Request) (string, error) {
	out, err := f.primary.Generate(ctx, req)
	if err == nil {
		return out, nil
	}
	f.logger.Warn("primary generator failed, trying fallbacks",
		zap.String("primary", f.primary.Name()),
		zap.Error(err))

	allErrors := []string{fmt.Sprintf("%s: %v", f.primary.Name(), err)}

	for _, fb := range f.fallbacks {
		out, err = fb.Generate(ctx, req)
		if err == nil {
			f.logger.Info("failover succeeded", zap.String("generator", fb.Name()))
			return out, nil
		}
		f.logger.Warn("fallback generator failed",
			zap.String("generator", fb.Name()),
			zap.Error(err))
		allErrors = append(allErrors, fmt.Sprintf("%s: %v", fb.Name(), err))
	}

	return "", fmt.Errorf("all generators failed: [%s]", strings.Join(allErrors, "; "))
}

// Name returns a composite name.
func (f *FailoverGenerator) Name() string {
	return f.primary.Name() + "+failover"
}
