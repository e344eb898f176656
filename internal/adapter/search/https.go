package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"search-online-mcp/internal/domain"
)

const maxProviderBodySize = 2 << 20 // 2MB

// HTTPSConfig configures the direct provider call.
type HTTPSConfig struct {
	BaseURL   string // e.g. https://api.search.brave.com/res/v1
	APIKey    string
	APIKeyEnv string // named in the missing-credential error
	Timeout   time.Duration
	UserAgent string
	// ForwardFilters sends country, lang and market as country, search_lang
	// and ui_lang. Off by default.
	ForwardFilters bool
}

// HTTPSStrategy calls the provider REST API directly. Every failure here is
// fatal because nothing comes after it.
type HTTPSStrategy struct {
	cfg    HTTPSConfig
	client *http.Client
	now    func() time.Time
	logger *slog.Logger
}

// NewHTTPSStrategy creates the direct HTTPS strategy. A nil client selects
// http.DefaultClient; the per-request deadline comes from cfg.Timeout.
func NewHTTPSStrategy(cfg HTTPSConfig, client *http.Client, logger *slog.Logger) *HTTPSStrategy {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.search.brave.com/res/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "search-online-mcp/0.1"
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "BRAVE_SEARCH_PYTHON_CLIENT_API_KEY"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSStrategy{cfg: cfg, client: client, now: time.Now, logger: logger}
}

func (s *HTTPSStrategy) Name() string { return StrategyHTTPS }

func (s *HTTPSStrategy) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	if s.cfg.APIKey == "" {
		return nil, fatalFailure(StrategyHTTPS,
			fmt.Errorf("%w: %s not set", domain.ErrMissingCredential, s.cfg.APIKeyEnv))
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, err := s.get(ctx, req)
	if err != nil {
		return nil, fatalFailure(StrategyHTTPS, fmt.Errorf("brave http error: %w", err))
	}

	recs, err := ExtractResults(body, req.Vertical)
	if err != nil {
		return nil, fatalFailure(StrategyHTTPS, fmt.Errorf("brave http error: brave json parse: %w",
			domain.NewSubSystemError(StrategyHTTPS, "HTTPSStrategy.Attempt", domain.ErrMalformedOutput, err.Error())))
	}

	resp := BuildResponse(req.Vertical, req.Query, recs, s.now())
	s.logger.Info("http ok", "count", len(resp.Results))
	return resp, nil
}

// RequestURL builds the GET URL for req.
func (s *HTTPSStrategy) RequestURL(req domain.SearchRequest) string {
	endpoint := s.cfg.BaseURL + "/" + string(req.Vertical) + "/search"
	q := url.Values{}
	q.Set("q", req.Query)
	if req.Limit != nil {
		q.Set("count", strconv.Itoa(*req.Limit))
	}
	if req.Offset != nil {
		q.Set("offset", strconv.Itoa(*req.Offset))
	}
	if s.cfg.ForwardFilters {
		if req.Country != "" {
			q.Set("country", req.Country)
		}
		if req.Lang != "" {
			q.Set("search_lang", req.Lang)
		}
		if req.Market != "" {
			q.Set("ui_lang", req.Market)
		}
	}
	return endpoint + "?" + q.Encode()
}

func (s *HTTPSStrategy) get(ctx context.Context, req domain.SearchRequest) ([]byte, error) {
	u := s.RequestURL(req)
	s.logger.Info("http GET", "url", u)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", s.cfg.APIKey)
	httpReq.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewSubSystemError(StrategyHTTPS, "HTTPSStrategy.Attempt", domain.ErrTimeout,
				fmt.Sprintf("aborted after %s", s.cfg.Timeout))
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxProviderBodySize {
		return nil, domain.NewSubSystemError(StrategyHTTPS, "HTTPSStrategy.Attempt", domain.ErrMalformedOutput,
			"response exceeds 2 MiB")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("http status", "status", resp.StatusCode, "head", head(string(body), 200))
		return nil, fmt.Errorf("brave http %d: %w", resp.StatusCode, statusSentinel(resp.StatusCode))
	}
	return body, nil
}

func statusSentinel(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthInvalid
	case http.StatusTooManyRequests:
		return domain.ErrRateLimit
	default:
		return domain.ErrBackendUpstreamStatus
	}
}
