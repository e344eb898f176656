package search

import (
	"context"
	"fmt"
	"log/slog"

	"search-online-mcp/internal/domain"
	"search-online-mcp/internal/infra/tracer"
)

// Compile-time interface assertion.
var _ domain.SearchService = (*Orchestrator)(nil)

// OrchestratorOptions controls which strategies take part.
type OrchestratorOptions struct {
	// SkipShellStrategy removes the shell-function strategy from the chain.
	SkipShellStrategy bool
}

// Orchestrator tries strategies in order and returns the first success.
type Orchestrator struct {
	strategies []Strategy
	opts       OrchestratorOptions
	logger     *slog.Logger
}

// NewOrchestrator creates an orchestrator over strategies, tried in the given order.
func NewOrchestrator(strategies []Strategy, opts OrchestratorOptions, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{strategies: strategies, opts: opts, logger: logger}
}

// Strategies returns the strategy names that would run, in order.
func (o *Orchestrator) Strategies() []string {
	names := make([]string, 0, len(o.strategies))
	for _, s := range o.active() {
		names = append(names, s.Name())
	}
	return names
}

func (o *Orchestrator) active() []Strategy {
	out := make([]Strategy, 0, len(o.strategies))
	for _, s := range o.strategies {
		if o.opts.SkipShellStrategy && s.Name() == StrategyShell {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Search runs the fallback chain. Strategies run one at a time, each at most
// once. A fatal StrategyError ends the chain immediately; after the last soft
// failure the error is wrapped in domain.ErrStrategiesExhausted.
func (o *Orchestrator) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	req = req.WithDefaults()

	ctx, span := tracer.StartSpan(ctx, "search.orchestrate")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("search.vertical", string(req.Vertical)))

	chain := o.active()
	if len(chain) == 0 {
		err := domain.NewDomainError("Orchestrator.Search", domain.ErrStrategiesExhausted, "no strategies configured")
		tracer.RecordError(span, err)
		return nil, err
	}
	if o.opts.SkipShellStrategy {
		o.logger.Info("shell strategy skipped")
	}

	var lastErr error
	for _, s := range chain {
		if err := ctx.Err(); err != nil {
			tracer.RecordError(span, err)
			return nil, fmt.Errorf("search cancelled before %s: %w", s.Name(), err)
		}

		resp, err := o.attempt(ctx, s, req)
		if err == nil {
			span.SetAttributes(
				tracer.StringAttr("search.strategy", s.Name()),
				tracer.IntAttr("search.results", len(resp.Results)),
			)
			tracer.SetOK(span)
			return resp, nil
		}
		lastErr = err

		if IsFatal(err) {
			o.logger.Warn("strategy failed fatally", "strategy", s.Name(), "error", err)
			tracer.RecordError(span, err)
			return nil, err
		}
		o.logger.Warn("strategy failed, falling back", "strategy", s.Name(), "error", err)
	}

	err := fmt.Errorf("%w: %w", domain.ErrStrategiesExhausted, lastErr)
	tracer.RecordError(span, err)
	return nil, err
}

func (o *Orchestrator) attempt(ctx context.Context, s Strategy, req domain.SearchRequest) (*domain.SearchResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "search.strategy."+s.Name())
	defer span.End()

	resp, err := s.Attempt(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if resp == nil {
		err := softFailure(s.Name(), 0,
			domain.NewSubSystemError(s.Name(), "Orchestrator.Search", domain.ErrMalformedOutput, "empty response"))
		tracer.RecordError(span, err)
		return nil, err
	}
	tracer.SetOK(span)
	return resp, nil
}
