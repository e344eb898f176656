package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Name != "search-online-mcp" {
		t.Errorf("Server.Name = %q, want %q", cfg.Server.Name, "search-online-mcp")
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("Server.Transport = %q, want stdio", cfg.Server.Transport)
	}
	if cfg.Search.Shell.Timeout != 60*time.Second {
		t.Errorf("Shell.Timeout = %v, want 60s", cfg.Search.Shell.Timeout)
	}
	if cfg.Search.Subprocess.Timeout != 90*time.Second {
		t.Errorf("Subprocess.Timeout = %v, want 90s", cfg.Search.Subprocess.Timeout)
	}
	if cfg.Search.HTTP.Timeout != 15*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 15s", cfg.Search.HTTP.Timeout)
	}
	if cfg.Search.APIKeyEnv != EnvAPIKey {
		t.Errorf("APIKeyEnv = %q, want %q", cfg.Search.APIKeyEnv, EnvAPIKey)
	}
	if cfg.Search.CircuitBreaker.Enabled {
		t.Error("circuit breaker should be disabled by default")
	}
	if cfg.Search.HTTP.ForwardFilters {
		t.Error("filters should not be forwarded to the REST API by default")
	}
	if !strings.HasSuffix(cfg.Diagnostics.Path, filepath.Join(".codex", "log", "search_online_mcp.log")) {
		t.Errorf("Diagnostics.Path = %q", cfg.Diagnostics.Path)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.Subprocess.Package != "brave-search-python-client" {
		t.Errorf("expected defaults, got package %q", cfg.Search.Subprocess.Package)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  transport: http
  addr: "127.0.0.1:9000"
search:
  skip_shell: true
  extra_paths: ["/opt/tools/bin"]
  shell:
    timeout: 30s
  subprocess:
    with: [httpx]
  http:
    base_url: "https://search.example.test/v1"
    forward_filters: true
  circuit_breaker:
    enabled: true
    max_failures: 5
logger:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Transport != "http" || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if !cfg.Search.SkipShell {
		t.Error("SkipShell = false, want true")
	}
	if len(cfg.Search.ExtraPaths) != 1 || cfg.Search.ExtraPaths[0] != "/opt/tools/bin" {
		t.Errorf("ExtraPaths = %v", cfg.Search.ExtraPaths)
	}
	if cfg.Search.Shell.Timeout != 30*time.Second {
		t.Errorf("Shell.Timeout = %v, want 30s", cfg.Search.Shell.Timeout)
	}
	if cfg.Search.Shell.Function != "search_online" {
		t.Errorf("unset fields should keep defaults, got function %q", cfg.Search.Shell.Function)
	}
	if len(cfg.Search.Subprocess.With) != 1 || cfg.Search.Subprocess.With[0] != "httpx" {
		t.Errorf("Subprocess.With = %v", cfg.Search.Subprocess.With)
	}
	if !cfg.Search.HTTP.ForwardFilters {
		t.Error("ForwardFilters = false, want true")
	}
	if cfg.Search.CircuitBreaker.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d, want 5", cfg.Search.CircuitBreaker.MaxFailures)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want debug", cfg.Logger.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("invalid: [yaml: bad"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  transport: carrier-pigeon\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("err type = %T, want *ValidationError", err)
	}
}

func TestLoadInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insecure.yaml")
	if err := os.WriteFile(path, []byte("logger:\n  level: info\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for insecure permissions")
	}
}

func TestValidatePermissions(t *testing.T) {
	dir := t.TempDir()
	for _, mode := range []os.FileMode{0600, 0644} {
		path := filepath.Join(dir, mode.String()+".yaml")
		if err := os.WriteFile(path, []byte("x"), mode); err != nil {
			t.Fatal(err)
		}
		if err := os.Chmod(path, mode); err != nil {
			t.Fatal(err)
		}
		if err := validatePermissions(path); err != nil {
			t.Errorf("mode %o: %v", mode, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIKey, "brave-test-key")
	t.Setenv(EnvForceUVX, "1")
	t.Setenv("SEARCH_ONLINE_LOGGER_LEVEL", "debug")
	t.Setenv("SEARCH_ONLINE_TRANSPORT", "http")
	t.Setenv("SEARCH_ONLINE_HTTP_ADDR", "0.0.0.0:9999")
	t.Setenv("SEARCH_ONLINE_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SEARCH_ONLINE_SHELL_BINARY", "/usr/local/bin/fish")
	t.Setenv("SEARCH_ONLINE_SHELL_TIMEOUT", "45")
	t.Setenv("SEARCH_ONLINE_SUBPROCESS_TIMEOUT", "2m")
	t.Setenv("SEARCH_ONLINE_HTTP_TIMEOUT", "5s")
	t.Setenv("SEARCH_ONLINE_HTTP_BASE_URL", "http://127.0.0.1:1234/res/v1")
	t.Setenv("SEARCH_ONLINE_EXTRA_PATHS", "/a/bin"+string(os.PathListSeparator)+" /b/bin ")
	t.Setenv("SEARCH_ONLINE_DIAG_LOG", "/tmp/diag.log")
	t.Setenv("SEARCH_ONLINE_TRACER_ENABLED", "true")
	t.Setenv("SEARCH_ONLINE_TRACER_EXPORTER", "stdout")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"APIKey", cfg.Search.APIKey, "brave-test-key"},
		{"SkipShell", cfg.Search.SkipShell, true},
		{"Logger.Level", cfg.Logger.Level, "debug"},
		{"Transport", cfg.Server.Transport, "http"},
		{"Addr", cfg.Server.Addr, "0.0.0.0:9999"},
		{"Shell.Binary", cfg.Search.Shell.Binary, "/usr/local/bin/fish"},
		{"Shell.Timeout", cfg.Search.Shell.Timeout, 45 * time.Second},
		{"Subprocess.Timeout", cfg.Search.Subprocess.Timeout, 2 * time.Minute},
		{"HTTP.Timeout", cfg.Search.HTTP.Timeout, 5 * time.Second},
		{"HTTP.BaseURL", cfg.Search.HTTP.BaseURL, "http://127.0.0.1:1234/res/v1"},
		{"Diagnostics.Path", cfg.Diagnostics.Path, "/tmp/diag.log"},
		{"Tracer.Enabled", cfg.Tracer.Enabled, true},
		{"Tracer.Exporter", cfg.Tracer.Exporter, "stdout"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if len(cfg.Search.ExtraPaths) != 2 || cfg.Search.ExtraPaths[1] != "/b/bin" {
		t.Errorf("ExtraPaths = %v", cfg.Search.ExtraPaths)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestEnvOverridesForceUVXOnlyWhenSet(t *testing.T) {
	t.Setenv(EnvForceUVX, "0")
	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Search.SkipShell {
		t.Error("SEARCH_ONLINE_FORCE_UVX=0 must not skip the shell strategy")
	}
}

func TestEnvOverridesInvalidTimeoutIgnored(t *testing.T) {
	t.Setenv("SEARCH_ONLINE_HTTP_TIMEOUT", "soon")
	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Search.HTTP.Timeout != 15*time.Second {
		t.Errorf("HTTP.Timeout = %v, want default", cfg.Search.HTTP.Timeout)
	}
}

func TestEnvOverridesDiagnosticsOff(t *testing.T) {
	t.Setenv("SEARCH_ONLINE_DIAG_LOG", "off")
	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Diagnostics.Enabled {
		t.Error("Diagnostics.Enabled = true, want false")
	}
}

func TestEnvOverridesCustomKeyVariable(t *testing.T) {
	t.Setenv("MY_BRAVE_KEY", "custom")
	cfg := Defaults()
	cfg.Search.APIKeyEnv = "MY_BRAVE_KEY"
	ApplyEnvOverrides(cfg)
	if cfg.Search.APIKey != "custom" {
		t.Errorf("APIKey = %q, want custom", cfg.Search.APIKey)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	passphrase := "test-passphrase-123"
	plaintext := "BSA-abcdef123456"

	encrypted, err := EncryptValue(plaintext, passphrase)
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	decrypted, err := DecryptValue(encrypted, passphrase)
	if err != nil {
		t.Fatalf("DecryptValue: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("got %q, want %q", decrypted, plaintext)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	encrypted, err := EncryptValue("secret", "correct-pass")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptValue(encrypted, "wrong-pass"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestDecryptValueMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no separator", "nocolon"},
		{"bad salt", "notvalidhex:aabbcc"},
		{"bad ciphertext", "aabbccddee112233aabbccddee112233:notvalidhex"},
		{"too short", "aabbccddee112233aabbccddee112233:aabb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecryptValue(tt.input, "passphrase"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecryptSecrets(t *testing.T) {
	passphrase := "test-config-key"
	encrypted, err := EncryptValue("BSA-secret", passphrase)
	if err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	cfg.Search.APIKey = "enc:" + encrypted
	if err := decryptSecrets(cfg, passphrase); err != nil {
		t.Fatalf("decryptSecrets: %v", err)
	}
	if cfg.Search.APIKey != "BSA-secret" {
		t.Errorf("APIKey = %q, want BSA-secret", cfg.Search.APIKey)
	}

	plain := Defaults()
	plain.Search.APIKey = "BSA-plain"
	if err := decryptSecrets(plain, passphrase); err != nil {
		t.Fatalf("decryptSecrets: %v", err)
	}
	if plain.Search.APIKey != "BSA-plain" {
		t.Error("non-encrypted key should remain unchanged")
	}

	bad := Defaults()
	bad.Search.APIKey = "enc:notvalidhex"
	if err := decryptSecrets(bad, passphrase); err == nil {
		t.Error("expected error for invalid ciphertext")
	}
}

func TestLoadWithConfigKey(t *testing.T) {
	passphrase := "test-load-key"
	encrypted, err := EncryptValue("BSA-loadtest", passphrase)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "search:\n  api_key: \"enc:" + encrypted + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvConfigKey, passphrase)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.APIKey != "BSA-loadtest" {
		t.Errorf("APIKey = %q, want BSA-loadtest", cfg.Search.APIKey)
	}
}
