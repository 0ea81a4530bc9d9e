package runner

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/quantevo/pairbt/internal/logger"
	"github.com/quantevo/pairbt/internal/strategy"
	"github.com/quantevo/pairbt/internal/types"
)

// Outcome is the result of one strategy evaluation within a session.
type Outcome struct {
	Strategy string
	Card     types.Scorecard
	Err      error
}

// Session runs a set of strategy configurations against one runner.
type Session struct {
	runner *Runner
	logger *logger.Logger
}

// NewSession creates a session over the runner.
func NewSession(r *Runner, log *logger.Logger) *Session {
	return &Session{runner: r, logger: log}
}

// Run evaluates every configured strategy on its own goroutine. Outcomes
// keep the input order, and one strategy failing never disturbs its
// siblings.
func (s *Session) Run(ctx context.Context, configs []strategy.Params) []Outcome {
	outcomes := make([]Outcome, len(configs))

	var wg sync.WaitGroup

	for i, params := range configs {
		wg.Add(1)

		go func(i int, params strategy.Params) {
			defer wg.Done()

			outcomes[i] = s.evaluate(ctx, params)
		}(i, params)
	}

	wg.Wait()

	return outcomes
}

func (s *Session) evaluate(ctx context.Context, params strategy.Params) Outcome {
	strat, err := strategy.New(params)
	if err != nil {
		s.logger.Error("failed to construct strategy",
			zap.String("kind", string(params.Kind)),
			zap.Error(err),
		)

		return Outcome{Strategy: string(params.Kind), Err: err}
	}

	card, err := s.runner.Run(ctx, strat)
	if err != nil {
		s.logger.Error("strategy run failed",
			zap.String("strategy", strat.Name()),
			zap.Error(err),
		)

		return Outcome{Strategy: strat.Name(), Err: err}
	}

	return Outcome{Strategy: strat.Name(), Card: card}
}
