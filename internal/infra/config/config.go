package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// Well-known environment variables.
const (
	EnvAPIKey    = "BRAVE_SEARCH_PYTHON_CLIENT_API_KEY"
	EnvForceUVX  = "SEARCH_ONLINE_FORCE_UVX"
	EnvConfigKey = "SEARCH_ONLINE_CONFIG_KEY"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "search-online.yaml"

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Search      SearchConfig      `yaml:"search"`
	Logger      LoggerConfig      `yaml:"logger"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Tracer      TracerConfig      `yaml:"tracer"`
}

// ServerConfig holds MCP server identity and transport.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // "stdio" or "http"
	Addr      string `yaml:"addr"`      // listen address for the http transport
	// AllowedOrigins lists non-loopback browser origins accepted over http.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SearchConfig holds the fallback chain settings.
type SearchConfig struct {
	Engine         string               `yaml:"engine"`
	APIKey         string               `yaml:"api_key,omitempty"`
	APIKeyEnv      string               `yaml:"api_key_env"`
	SkipShell      bool                 `yaml:"skip_shell"`
	ExtraPaths     []string             `yaml:"extra_paths"`
	Shell          ShellConfig          `yaml:"shell"`
	Subprocess     SubprocessConfig     `yaml:"subprocess"`
	HTTP           HTTPConfig           `yaml:"http"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ShellConfig holds settings for the shell-function strategy.
type ShellConfig struct {
	Binary   string        `yaml:"binary"`
	Fallback string        `yaml:"fallback"`
	Function string        `yaml:"function"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SubprocessConfig holds settings for the API-client subprocess strategy.
type SubprocessConfig struct {
	Runner   string        `yaml:"runner"`
	Fallback string        `yaml:"fallback"`
	Package  string        `yaml:"package"`
	With     []string      `yaml:"with"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HTTPConfig holds settings for the direct REST strategy.
type HTTPConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	ConnTimeout    time.Duration `yaml:"conn_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	ForwardFilters bool          `yaml:"forward_filters"`
}

// CircuitBreakerConfig holds breaker settings for the non-final strategies.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"` // "stderr" or a file path; stdout is reserved for MCP
}

// DiagnosticsConfig holds the append-only diagnostic log settings.
type DiagnosticsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// defaultDiagnosticsPath returns $HOME/.codex/log/search_online_mcp.log.
// Falls back to the working directory if $HOME cannot be determined.
func defaultDiagnosticsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "search_online_mcp.log"
	}
	return filepath.Join(home, ".codex", "log", "search_online_mcp.log")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "search-online-mcp",
			Version:   "0.1.1",
			Transport: "stdio",
			Addr:      "127.0.0.1:8765",
		},
		Search: SearchConfig{
			Engine:    "brave",
			APIKeyEnv: EnvAPIKey,
			Shell: ShellConfig{
				Binary:   "fish",
				Fallback: "/opt/homebrew/bin/fish",
				Function: "search_online",
				Timeout:  60 * time.Second,
			},
			Subprocess: SubprocessConfig{
				Runner:   "uvx",
				Fallback: "/opt/homebrew/bin/uvx",
				Package:  "brave-search-python-client",
				With:     []string{"psutil", "httpx"},
				Timeout:  90 * time.Second,
			},
			HTTP: HTTPConfig{
				BaseURL:     "https://api.search.brave.com/res/v1",
				Timeout:     15 * time.Second,
				ConnTimeout: 5 * time.Second,
				UserAgent:   "search-online-mcp/0.1",
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     5 * time.Minute,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:    true,
			Path:       defaultDiagnosticsPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := validatePermissions(path); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(EnvConfigKey); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps the credential variable and SEARCH_ONLINE_* env vars
// to config fields.
func ApplyEnvOverrides(cfg *Config) {
	keyEnv := cfg.Search.APIKeyEnv
	if keyEnv == "" {
		keyEnv = EnvAPIKey
	}
	if v := os.Getenv(keyEnv); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv(EnvForceUVX); v == "1" || v == "true" {
		cfg.Search.SkipShell = true
	}
	if v := os.Getenv("SEARCH_ONLINE_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SEARCH_ONLINE_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("SEARCH_ONLINE_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SEARCH_ONLINE_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitAndTrim(v, ",")
	}
	if v := os.Getenv("SEARCH_ONLINE_SHELL_BINARY"); v != "" {
		cfg.Search.Shell.Binary = v
	}
	if v := os.Getenv("SEARCH_ONLINE_SHELL_TIMEOUT"); v != "" {
		if d, err := parseSeconds(v); err == nil && d > 0 {
			cfg.Search.Shell.Timeout = d
		}
	}
	if v := os.Getenv("SEARCH_ONLINE_SUBPROCESS_TIMEOUT"); v != "" {
		if d, err := parseSeconds(v); err == nil && d > 0 {
			cfg.Search.Subprocess.Timeout = d
		}
	}
	if v := os.Getenv("SEARCH_ONLINE_HTTP_TIMEOUT"); v != "" {
		if d, err := parseSeconds(v); err == nil && d > 0 {
			cfg.Search.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("SEARCH_ONLINE_HTTP_BASE_URL"); v != "" {
		cfg.Search.HTTP.BaseURL = v
	}
	if v := os.Getenv("SEARCH_ONLINE_EXTRA_PATHS"); v != "" {
		cfg.Search.ExtraPaths = splitAndTrim(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("SEARCH_ONLINE_DIAG_LOG"); v != "" {
		switch v {
		case "off", "false", "0":
			cfg.Diagnostics.Enabled = false
		default:
			cfg.Diagnostics.Enabled = true
			cfg.Diagnostics.Path = v
		}
	}
	if v := os.Getenv("SEARCH_ONLINE_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("SEARCH_ONLINE_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// parseSeconds accepts a Go duration ("45s") or a bare number of seconds.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// splitAndTrim splits s by sep, trims each element and drops empty ones.
func splitAndTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decryptSecrets finds "enc:..." values and decrypts them in place.
func decryptSecrets(cfg *Config, passphrase string) error {
	if strings.HasPrefix(cfg.Search.APIKey, "enc:") {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.Search.APIKey, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("search api_key: %w", err)
		}
		cfg.Search.APIKey = decrypted
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
// The result is hex(salt) + ":" + hex(nonce+ciphertext).
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sealed), nil
}

// DecryptValue reverses EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others,
// since they may hold the credential.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
