package search

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"search-online-mcp/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(n int) *int { return &n }

// roundTripFunc adapts a function to the http.RoundTripper interface.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// fakeRunner records invocations and replays a canned result.
type fakeRunner struct {
	mu    sync.Mutex
	calls []Command
	res   RunResult
	err   error
}

func (r *fakeRunner) Run(_ context.Context, cmd Command) (RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cmd)
	return r.res, r.err
}

// stubStrategy is a Strategy with a scripted outcome and a call counter.
type stubStrategy struct {
	name      string
	resp      *domain.SearchResponse
	err       error
	callCount int
	calls     *[]string
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(_ context.Context, _ domain.SearchRequest) (*domain.SearchResponse, error) {
	s.callCount++
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	return s.resp, s.err
}
