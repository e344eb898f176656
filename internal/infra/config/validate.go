package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
// A missing credential is not an error here: the chain reports it per request.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateSearch(cfg, ve)
	validateLogger(cfg, ve)
	validateDiagnostics(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validTransports = map[string]bool{
	"stdio": true,
	"http":  true,
}

func validateServer(cfg *Config, ve *ValidationError) {
	s := cfg.Server
	if s.Name == "" {
		ve.Add("server.name must not be empty")
	}
	if !validTransports[s.Transport] {
		ve.Add("server.transport %q is invalid (want stdio or http)", s.Transport)
	}
	if s.Transport == "http" {
		if _, _, err := net.SplitHostPort(s.Addr); err != nil {
			ve.Add("server.addr %q is not host:port: %v", s.Addr, err)
		}
	}
}

var validEngines = map[string]bool{
	"brave": true,
}

func validateSearch(cfg *Config, ve *ValidationError) {
	s := cfg.Search
	if !validEngines[s.Engine] {
		ve.Add("search.engine %q is not supported (want brave)", s.Engine)
	}
	if s.APIKeyEnv == "" {
		ve.Add("search.api_key_env must not be empty")
	}

	if !s.SkipShell {
		if s.Shell.Binary == "" && s.Shell.Fallback == "" {
			ve.Add("search.shell.binary or search.shell.fallback must be set")
		}
		if s.Shell.Function == "" {
			ve.Add("search.shell.function must not be empty")
		}
	}
	if s.Shell.Timeout <= 0 {
		ve.Add("search.shell.timeout must be > 0")
	}

	if s.Subprocess.Runner == "" && s.Subprocess.Fallback == "" {
		ve.Add("search.subprocess.runner or search.subprocess.fallback must be set")
	}
	if s.Subprocess.Package == "" {
		ve.Add("search.subprocess.package must not be empty")
	}
	if s.Subprocess.Timeout <= 0 {
		ve.Add("search.subprocess.timeout must be > 0")
	}

	if u, err := url.Parse(s.HTTP.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		ve.Add("search.http.base_url %q must be an absolute URL", s.HTTP.BaseURL)
	} else if u.Scheme != "https" && u.Scheme != "http" {
		ve.Add("search.http.base_url scheme %q must be http or https", u.Scheme)
	}
	if s.HTTP.Timeout <= 0 {
		ve.Add("search.http.timeout must be > 0")
	}
	if s.HTTP.ConnTimeout < 0 {
		ve.Add("search.http.conn_timeout must be >= 0")
	}

	if cb := s.CircuitBreaker; cb.Enabled {
		if cb.MaxFailures == 0 {
			ve.Add("search.circuit_breaker.max_failures must be > 0 when enabled")
		}
		if cb.Timeout <= 0 {
			ve.Add("search.circuit_breaker.timeout must be > 0 when enabled")
		}
		if cb.Interval < 0 {
			ve.Add("search.circuit_breaker.interval must be >= 0")
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	l := cfg.Logger
	if !validLogLevels[strings.ToLower(l.Level)] {
		ve.Add("logger.level %q is invalid (want debug, info, warn or error)", l.Level)
	}
	if !validLogFormats[l.Format] {
		ve.Add("logger.format %q is invalid (want text or json)", l.Format)
	}
	if l.Output == "stdout" {
		ve.Add("logger.output must not be stdout (reserved for the MCP stream)")
	}
}

func validateDiagnostics(cfg *Config, ve *ValidationError) {
	d := cfg.Diagnostics
	if !d.Enabled {
		return
	}
	if d.Path == "" {
		ve.Add("diagnostics.path must not be empty when enabled")
	}
	if d.MaxSizeMB <= 0 {
		ve.Add("diagnostics.max_size_mb must be > 0")
	}
	if d.MaxBackups < 0 {
		ve.Add("diagnostics.max_backups must be >= 0")
	}
}

var validExporters = map[string]bool{
	"noop":   true,
	"stdout": true,
	"":       true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want noop or stdout)", cfg.Tracer.Exporter)
	}
}
