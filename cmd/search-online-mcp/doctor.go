package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"search-online-mcp/internal/adapter/search"
	"search-online-mcp/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results.
func runDoctor() error {
	cfgPath := configPath(os.Args)

	// Try to load config; some checks work without it.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Credential", Fn: checkCredential},
		{Name: "Shell function", Fn: checkShell},
		{Name: "Package runner", Fn: checkRunner},
		{Name: "jq", Fn: checkJQ},
		{Name: "Diagnostic log", Fn: checkDiagnosticLog},
		{Name: "Brave API", Fn: checkBraveReachable},
	}
	return report(os.Stdout, cfg, checks)
}

// report runs checks against cfg and prints one line per check plus a summary.
func report(w io.Writer, cfg *config.Config, checks []Check) error {
	fmt.Fprintln(w, "search-online-mcp doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Fprintln(w, "\nFix the FAIL issues above before registering the server.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Fprintln(w, "\nsearch_online should work, but some fallbacks are unavailable.")
	} else {
		fmt.Fprintln(w, "\nAll checks passed! search-online-mcp is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

var notLoaded = CheckResult{
	Status:  StatusWarn,
	Message: "cannot check, config not loaded",
}

// checkConfigFile returns a check that reports how the config was obtained.
// A missing file is fine: defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Check %s syntax, permissions (0600) and %s", cfgPath, config.EnvConfigKey),
			}
		}

		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
			}
		}

		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkCredential reports whether the search credential is set. Only its
// length is ever printed.
func checkCredential(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	if cfg.Search.APIKey == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s is not set; the subprocess and HTTPS fallbacks will fail", cfg.Search.APIKeyEnv),
			Fix:     fmt.Sprintf("export %s=<your key> in the MCP server environment", cfg.Search.APIKeyEnv),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("credential present (length %d)", len(cfg.Search.APIKey)),
	}
}

// resolve looks name up on the PATH child processes will see.
func resolve(cfg *config.Config, name, fallback string) string {
	path := search.AugmentPath(os.Getenv("PATH"), extraPaths(cfg))
	resolved := search.LookPath(name, path, fallback)
	if resolved == "" {
		return ""
	}
	if info, err := os.Stat(resolved); err != nil || info.IsDir() {
		return ""
	}
	return resolved
}

func checkShell(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	if cfg.Search.SkipShell {
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("shell strategy skipped (%s)", config.EnvForceUVX),
		}
	}
	sh := cfg.Search.Shell
	bin := resolve(cfg, sh.Binary, sh.Fallback)
	if bin == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s not found; searches fall back to %s", sh.Binary, cfg.Search.Subprocess.Runner),
			Fix:     fmt.Sprintf("Install %s or set %s=1", sh.Binary, config.EnvForceUVX),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s found at %s (function %s)", sh.Binary, bin, sh.Function),
	}
}

func checkRunner(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	sp := cfg.Search.Subprocess
	bin := resolve(cfg, sp.Runner, sp.Fallback)
	if bin == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s not found; searches fall back to direct HTTPS", sp.Runner),
			Fix:     "Install uv (https://docs.astral.sh/uv/) to enable the API client fallback",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s found at %s (package %s)", sp.Runner, bin, sp.Package),
	}
}

// checkJQ verifies jq is available; the shell function pipes through it.
func checkJQ(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	if cfg.Search.SkipShell {
		return CheckResult{Status: StatusPass, Message: "not needed, shell strategy skipped"}
	}
	bin := resolve(cfg, "jq", "")
	if bin == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: "jq not found; the shell function may fail",
			Fix:     "Install jq",
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("jq found at %s", bin)}
}

func checkDiagnosticLog(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	if !cfg.Diagnostics.Enabled {
		return CheckResult{Status: StatusPass, Message: "diagnostic log disabled"}
	}

	path := cfg.Diagnostics.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("cannot create %s: %v", filepath.Dir(path), err),
			Fix:     "Set diagnostics.path or SEARCH_ONLINE_DIAG_LOG to a writable location",
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("cannot write %s: %v", path, err),
			Fix:     "Set diagnostics.path or SEARCH_ONLINE_DIAG_LOG to a writable location",
		}
	}
	f.Close()
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("writable at %s", path)}
}

// checkBraveReachable dials the HTTPS fallback's host.
func checkBraveReachable(cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded
	}
	addr, err := dialAddr(cfg.Search.HTTP.BaseURL)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("cannot reach %s: %v", addr, err),
			Fix:     "Check your network connection and firewall settings",
		}
	}
	conn.Close()
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s reachable", addr)}
}

// dialAddr returns host:port for a base URL, defaulting the port by scheme.
func dialAddr(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q", baseURL)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "443"
	if u.Scheme == "http" {
		port = "80"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
