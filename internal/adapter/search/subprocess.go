package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"search-online-mcp/internal/domain"
)

// SubprocessConfig configures the package-runner strategy.
type SubprocessConfig struct {
	Runner     string   // package runner name or path (uvx)
	Fallback   string   // used when Runner cannot be resolved
	Package    string   // API client package
	With       []string // extra packages installed alongside Package
	Timeout    time.Duration
	ExtraPaths []string
	// APIKeyEnv names the credential variable the client reads. When APIKey
	// is set it overrides the inherited value; otherwise the inherited
	// value passes through unchanged.
	APIKeyEnv string
	APIKey    string
}

// SubprocessStrategy runs the API client package through a package runner
// and normalizes its raw provider payload.
type SubprocessStrategy struct {
	cfg    SubprocessConfig
	runner ProcessRunner
	env    func() []string
	now    func() time.Time
	logger *slog.Logger
}

// NewSubprocessStrategy creates the subprocess-API strategy.
func NewSubprocessStrategy(cfg SubprocessConfig, runner ProcessRunner, logger *slog.Logger) *SubprocessStrategy {
	if cfg.Package == "" {
		cfg.Package = "brave-search-python-client"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &SubprocessStrategy{cfg: cfg, runner: runner, env: os.Environ, now: time.Now, logger: logger}
}

func (s *SubprocessStrategy) Name() string { return StrategySubprocess }

// ClientArgs builds the package-runner argv for req.
func (s *SubprocessStrategy) ClientArgs(req domain.SearchRequest) []string {
	var args []string
	for _, dep := range s.cfg.With {
		args = append(args, "--with", dep)
	}
	args = append(args, s.cfg.Package, string(req.Vertical), req.Query)
	if req.Limit != nil {
		args = append(args, "--count", strconv.Itoa(*req.Limit))
	}
	if req.Offset != nil {
		args = append(args, "--offset", strconv.Itoa(*req.Offset))
	}
	if req.Country != "" {
		args = append(args, "--country", req.Country)
	}
	if req.Lang != "" {
		args = append(args, "--search-lang", req.Lang)
	}
	if req.Market != "" {
		args = append(args, "--ui-lang", req.Market)
	}
	return args
}

func (s *SubprocessStrategy) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	env := ChildEnv(s.env(), s.cfg.ExtraPaths)
	if s.cfg.APIKeyEnv != "" && s.cfg.APIKey != "" {
		env = setEnv(env, s.cfg.APIKeyEnv, s.cfg.APIKey)
	}
	bin := LookPath(s.cfg.Runner, EnvValue(env, "PATH"), s.cfg.Fallback)
	args := s.ClientArgs(req)

	s.logger.Info("subprocess invoke", "runner", bin, "args", strings.Join(args, " "))

	res, err := s.runner.Run(ctx, Command{Path: bin, Args: args, Env: env, Timeout: s.cfg.Timeout})
	if err != nil {
		s.logger.Warn("subprocess run failed", "runner", bin, "exit_code", res.ExitCode, "error", err,
			"stderr", head(strings.TrimSpace(string(res.Stderr)), 200))
		return nil, softFailure(StrategySubprocess, res.ExitCode,
			runError(StrategySubprocess, "SubprocessStrategy.Attempt", bin, err))
	}
	if res.ExitCode != 0 {
		s.logger.Warn("subprocess exit", "exit_code", res.ExitCode,
			"stderr", head(strings.TrimSpace(string(res.Stderr)), 200))
		return nil, softFailure(StrategySubprocess, res.ExitCode,
			fmt.Errorf("%s exit %d", filepath.Base(bin), res.ExitCode))
	}

	recs, err := ExtractResults(res.Stdout, req.Vertical)
	if err != nil {
		s.logger.Warn("subprocess parse error", "error", err, "head", head(string(res.Stdout), 200))
		return nil, softFailure(StrategySubprocess, 0,
			domain.NewSubSystemError(StrategySubprocess, "SubprocessStrategy.Attempt", domain.ErrMalformedOutput, err.Error()))
	}

	resp := BuildResponse(req.Vertical, req.Query, recs, s.now())
	s.logger.Info("subprocess ok", "count", len(resp.Results))
	return resp, nil
}
