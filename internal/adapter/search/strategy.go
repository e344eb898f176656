package search

import (
	"context"
	"errors"

	"search-online-mcp/internal/domain"
)

// Strategy names.
const (
	StrategyShell      = "shell"
	StrategySubprocess = "subprocess"
	StrategyHTTPS      = "https"
)

// Strategy is one backend able to answer a search request.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}

// StrategyError reports a failed attempt. Fatal failures end the fallback
// chain; soft failures advance to the next strategy.
type StrategyError struct {
	Strategy string
	Fatal    bool
	ExitCode int // process exit status, or 0 when not applicable
	Err      error
}

func (e *StrategyError) Error() string { return e.Err.Error() }

func (e *StrategyError) Unwrap() error { return e.Err }

func softFailure(strategy string, exitCode int, err error) *StrategyError {
	return &StrategyError{Strategy: strategy, ExitCode: exitCode, Err: err}
}

func fatalFailure(strategy string, err error) *StrategyError {
	return &StrategyError{Strategy: strategy, Fatal: true, Err: err}
}

// IsFatal reports whether err is a StrategyError that must stop the chain.
func IsFatal(err error) bool {
	var se *StrategyError
	return errors.As(err, &se) && se.Fatal
}

// head truncates s to at most n bytes for logging.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
