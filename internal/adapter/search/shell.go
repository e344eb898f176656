package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kaptinlin/jsonschema"

	"search-online-mcp/internal/domain"
)

// ShellConfig configures the shell-function strategy.
type ShellConfig struct {
	Binary     string        // shell name or path, resolved on the augmented PATH
	Fallback   string        // used when Binary cannot be resolved
	Function   string        // shell function to invoke
	Timeout    time.Duration // hard cap per invocation
	ExtraPaths []string
}

// ShellStrategy invokes a search function inside a login shell. The script
// handed to the shell is constant; request values only travel as argv.
type ShellStrategy struct {
	cfg    ShellConfig
	runner ProcessRunner
	env    func() []string
	logger *slog.Logger
}

// NewShellStrategy creates the shell-function strategy.
func NewShellStrategy(cfg ShellConfig, runner ProcessRunner, logger *slog.Logger) *ShellStrategy {
	if cfg.Function == "" {
		cfg.Function = "search_online"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ShellStrategy{cfg: cfg, runner: runner, env: os.Environ, logger: logger}
}

func (s *ShellStrategy) Name() string { return StrategyShell }

// FunctionArgs builds the argument list passed to the shell function:
// -o json, one flag per present field, then the query.
func FunctionArgs(req domain.SearchRequest) []string {
	args := []string{"-o", "json"}
	if req.Vertical != "" {
		args = append(args, "-v", string(req.Vertical))
	}
	if req.Limit != nil {
		args = append(args, "-L", strconv.Itoa(*req.Limit))
	}
	if req.Offset != nil {
		args = append(args, "-O", strconv.Itoa(*req.Offset))
	}
	if req.Country != "" {
		args = append(args, "-C", req.Country)
	}
	if req.Lang != "" {
		args = append(args, "-l", req.Lang)
	}
	if req.Market != "" {
		args = append(args, "-M", req.Market)
	}
	return append(args, req.Query)
}

// shellArgv returns the argv for shell: a login shell running a constant
// script that forwards its positional parameters to fn.
func shellArgv(shell, fn string, fnArgs []string) []string {
	if filepath.Base(shell) == "fish" {
		argv := []string{"-l", "-c", fn + " $argv", "--"}
		return append(argv, fnArgs...)
	}
	argv := []string{"-l", "-c", fn + ` "$@"`, fn}
	return append(argv, fnArgs...)
}

func (s *ShellStrategy) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	env := ChildEnv(s.env(), s.cfg.ExtraPaths)
	bin := LookPath(s.cfg.Binary, EnvValue(env, "PATH"), s.cfg.Fallback)
	fnArgs := FunctionArgs(req)

	s.logger.Info("shell invoke", "shell", bin, "function", s.cfg.Function, "args", strings.Join(fnArgs, " "))

	res, err := s.runner.Run(ctx, Command{
		Path:    bin,
		Args:    shellArgv(bin, s.cfg.Function, fnArgs),
		Env:     env,
		Timeout: s.cfg.Timeout,
	})
	if err != nil {
		s.logger.Warn("shell run failed", "shell", bin, "exit_code", res.ExitCode, "error", err,
			"stderr", head(strings.TrimSpace(string(res.Stderr)), 200))
		return nil, softFailure(StrategyShell, res.ExitCode, runError(StrategyShell, "ShellStrategy.Attempt", bin, err))
	}
	if res.ExitCode != 0 {
		s.logger.Warn("shell exit", "exit_code", res.ExitCode,
			"stderr", head(strings.TrimSpace(string(res.Stderr)), 200))
		return nil, softFailure(StrategyShell, res.ExitCode,
			fmt.Errorf("%s exit %d", filepath.Base(bin), res.ExitCode))
	}

	resp, err := decodeShellOutput(res.Stdout)
	if err != nil {
		s.logger.Warn("shell parse error", "error", err, "head", head(string(res.Stdout), 120))
		return nil, softFailure(StrategyShell, 0,
			domain.NewSubSystemError(StrategyShell, "ShellStrategy.Attempt", domain.ErrMalformedOutput, err.Error()))
	}

	s.logger.Info("shell ok", "len", len(res.Stdout), "results", len(resp.Results))
	return resp, nil
}

// responseShapeSchema is the minimal contract shell output must meet.
const responseShapeSchema = `{
  "type": "object",
  "required": ["results"],
  "properties": {
    "engine": {"type": "string"},
    "vertical": {"type": "string"},
    "query": {"type": "string"},
    "fetched_at": {"type": "string"},
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["rank"],
        "properties": {
          "rank": {"type": "integer", "minimum": 1},
          "title": {"type": "string"},
          "url": {"type": "string"},
          "sitelinks": {"type": "array"}
        }
      }
    }
  }
}`

var (
	shapeOnce   sync.Once
	shapeSchema *jsonschema.Schema
	shapeErr    error
)

func compiledShapeSchema() (*jsonschema.Schema, error) {
	shapeOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		shapeSchema, shapeErr = compiler.Compile([]byte(responseShapeSchema))
	})
	return shapeSchema, shapeErr
}

// decodeShellOutput parses and shape-checks SearchResponse JSON.
func decodeShellOutput(stdout []byte) (*domain.SearchResponse, error) {
	var data any
	if err := json.Unmarshal(stdout, &data); err != nil {
		return nil, err
	}
	schema, err := compiledShapeSchema()
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return nil, fmt.Errorf("%s", result.Error())
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Results {
		if resp.Results[i].Sitelinks == nil {
			resp.Results[i].Sitelinks = []domain.Sitelink{}
		}
	}
	if resp.Results == nil {
		resp.Results = []domain.NormalizedResult{}
	}
	return &resp, nil
}

// runError classifies a runner error into a domain error for subsystem.
func runError(subsystem, op, bin string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewSubSystemError(subsystem, op, domain.ErrTimeout, filepath.Base(bin))
	case isExecNotFound(err):
		return domain.NewSubSystemError(subsystem, op, domain.ErrNotFound, bin)
	default:
		return domain.NewSubSystemError(subsystem, op, domain.ErrStrategyUnavailable, err.Error())
	}
}
