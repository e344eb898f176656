package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"search-online-mcp/internal/adapter/search"
	"search-online-mcp/internal/domain"
	"search-online-mcp/internal/infra/config"
	"search-online-mcp/internal/infra/logger"
	"search-online-mcp/internal/infra/tracer"
)

func main() {
	// Handle help flag first
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	case "selftest":
		if err := runSelfTest(); err != nil {
			fmt.Fprintf(os.Stderr, "selftest: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	case "encrypt":
		if err := runEncrypt(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'search-online-mcp --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`search-online-mcp - MCP server exposing the search_online tool

USAGE:
    search-online-mcp [COMMAND] [FLAGS]

COMMANDS:
    serve       Serve MCP over stdio or streamable HTTP (default)
    selftest    Spawn the server over stdio and run one sample search
    doctor      Run health checks on the search backends
    encrypt     Read a secret from stdin and print its enc: form

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./search-online.yaml)

CONFIGURATION:
    Config file: ./search-online.yaml (optional; defaults apply when missing)
    Credential:  BRAVE_SEARCH_PYTHON_CLIENT_API_KEY
    Environment: SEARCH_ONLINE_* variables override config
                 SEARCH_ONLINE_FORCE_UVX=1 skips the shell function

EXAMPLES:
    search-online-mcp                              # Serve over stdio
    search-online-mcp --config /etc/search.yaml    # Serve with custom config
    SEARCH_ONLINE_TRANSPORT=http search-online-mcp # Serve on 127.0.0.1:8765/mcp
    search-online-mcp selftest                     # End-to-end check
    search-online-mcp doctor                       # Check system health`)
}

// configPath returns the --config value from args, then SEARCH_ONLINE_CONFIG,
// then the default path.
func configPath(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("SEARCH_ONLINE_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath(os.Args))
	if err != nil {
		return domain.WrapOp("config", fmt.Errorf("%w: %w", domain.ErrConfigLoad, err))
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger, cfg.Diagnostics)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer, tracer.Service{Name: cfg.Server.Name, Version: cfg.Server.Version})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Search pipeline and MCP server
	srv, orch, err := buildServer(cfg, search.NewExecRunner(), log)
	if err != nil {
		return err
	}

	log.Info("search-online-mcp started",
		"version", cfg.Server.Version,
		"transport", cfg.Server.Transport,
		"strategies", orch.Strategies(),
		"credential_len", len(cfg.Search.APIKey),
	)

	// 4. Serve until the client disconnects or a signal arrives
	if err := srv.Serve(ctx, cfg.Server.Transport, cfg.Server.Addr, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("search-online-mcp stopped")
	return nil
}
