package main

import (
	"fmt"
	"log/slog"
	"slices"

	"search-online-mcp/internal/adapter/mcpserver"
	"search-online-mcp/internal/adapter/search"
	"search-online-mcp/internal/adapter/tool"
	"search-online-mcp/internal/infra/config"
)

// extraPaths returns the directories appended to PATH for child processes.
func extraPaths(cfg *config.Config) []string {
	return append(slices.Clone(search.DefaultExtraPaths), cfg.Search.ExtraPaths...)
}

// buildStrategies assembles the fallback chain in order: shell function,
// API-client subprocess, direct HTTPS.
func buildStrategies(cfg *config.Config, runner search.ProcessRunner, log *slog.Logger) []search.Strategy {
	paths := extraPaths(cfg)
	sc := cfg.Search

	shell := search.NewShellStrategy(search.ShellConfig{
		Binary:     sc.Shell.Binary,
		Fallback:   sc.Shell.Fallback,
		Function:   sc.Shell.Function,
		Timeout:    sc.Shell.Timeout,
		ExtraPaths: paths,
	}, runner, log)

	subprocess := search.NewSubprocessStrategy(search.SubprocessConfig{
		Runner:     sc.Subprocess.Runner,
		Fallback:   sc.Subprocess.Fallback,
		Package:    sc.Subprocess.Package,
		With:       sc.Subprocess.With,
		Timeout:    sc.Subprocess.Timeout,
		ExtraPaths: paths,
		APIKeyEnv:  sc.APIKeyEnv,
		APIKey:     sc.APIKey,
	}, runner, log)

	https := search.NewHTTPSStrategy(search.HTTPSConfig{
		BaseURL:        sc.HTTP.BaseURL,
		APIKey:         sc.APIKey,
		APIKeyEnv:      sc.APIKeyEnv,
		Timeout:        sc.HTTP.Timeout,
		UserAgent:      sc.HTTP.UserAgent,
		ForwardFilters: sc.HTTP.ForwardFilters,
	}, search.NewHTTPClient(sc.HTTP.ConnTimeout), log)

	chain := []search.Strategy{shell, subprocess, https}
	if sc.CircuitBreaker.Enabled {
		chain = search.WithBreakers(chain, search.BreakerConfig{
			MaxFailures: sc.CircuitBreaker.MaxFailures,
			Timeout:     sc.CircuitBreaker.Timeout,
			Interval:    sc.CircuitBreaker.Interval,
		}, log)
	}
	return chain
}

// buildServer wires the search pipeline into an MCP server.
func buildServer(cfg *config.Config, runner search.ProcessRunner, log *slog.Logger) (*mcpserver.Server, *search.Orchestrator, error) {
	orch := search.NewOrchestrator(
		buildStrategies(cfg, runner, log),
		search.OrchestratorOptions{SkipShellStrategy: cfg.Search.SkipShell},
		log,
	)

	searchTool, err := tool.NewSearchOnlineTool(orch, len(cfg.Search.APIKey), log)
	if err != nil {
		return nil, nil, fmt.Errorf("search tool: %w", err)
	}

	registry := tool.NewRegistry()
	if err := registry.Register(searchTool); err != nil {
		return nil, nil, err
	}

	srv, err := mcpserver.New(cfg.Server.Name, cfg.Server.Version, registry.List(), log,
		mcpserver.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("mcp server: %w", err)
	}
	return srv, orch, nil
}
