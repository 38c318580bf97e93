package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"CrawlPipe/internal/domain"
	"CrawlPipe/internal/ports"
	"CrawlPipe/internal/scanner"
)

// StrategySource implements CandidateSource by resolving each source's type
// to a registered scanner strategy.
type StrategySource struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{registry: reg, logger: log}
}

// Discover executes the strategy matching the source's type.
func (s *StrategySource) Discover(ctx context.Context, src domain.Source) ([]string, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(string(src.Type))
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}

	urls, err := strategy.Discover(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", src.ID, err)
	}

	if s.logger != nil {
		s.logger.Debug("discovered candidates", "source", src.ID, "strategy", strategy.Name(), "count", len(urls))
	}
	return urls, nil
}
