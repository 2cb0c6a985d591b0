// No t.Parallel(): env vars are process-global.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var allEnvKeys = []string{
	envKeyHost, envKeyUnifiedPort, envKeyZigPort, envKeyZlsPort,
	envKeyAssetDir, envKeyZigIndex, envKeyZigArtifact, envKeyZlsIndex,
	envKeyZlsArtifact, envKeyOnReadError, envKeyMetricsAddr, envKeyLogFormat,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnvKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load() = %+v; want %+v", cfg, Default())
	}
	if cfg.UnifiedPort != 3000 || cfg.ZigPort != 8000 || cfg.ZlsPort != 9000 {
		t.Errorf("ports = %d/%d/%d; want 3000/8000/9000", cfg.UnifiedPort, cfg.ZigPort, cfg.ZlsPort)
	}
	if cfg.AssetDir != "src" {
		t.Errorf("AssetDir = %q; want %q", cfg.AssetDir, "src")
	}
	if cfg.OnReadError != PolicyStatus {
		t.Errorf("OnReadError = %q; want %q", cfg.OnReadError, PolicyStatus)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q; want empty", cfg.MetricsAddr)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
host: 127.0.0.1
unified_port: 3100
asset_dir: /srv/mirror
zls_artifact: zls-x86_64-linux.tar.xz
on_read_error: abort
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q; want 127.0.0.1", cfg.Host)
	}
	if cfg.UnifiedPort != 3100 {
		t.Errorf("UnifiedPort = %d; want 3100", cfg.UnifiedPort)
	}
	if cfg.ZigPort != 8000 {
		t.Errorf("ZigPort = %d; want default 8000", cfg.ZigPort)
	}
	if cfg.AssetDir != "/srv/mirror" {
		t.Errorf("AssetDir = %q; want /srv/mirror", cfg.AssetDir)
	}
	if cfg.ZlsArtifact != "zls-x86_64-linux.tar.xz" {
		t.Errorf("ZlsArtifact = %q", cfg.ZlsArtifact)
	}
	if cfg.ZigIndex != "zig.json" {
		t.Errorf("ZigIndex = %q; want default zig.json", cfg.ZigIndex)
	}
	if cfg.OnReadError != PolicyAbort {
		t.Errorf("OnReadError = %q; want abort", cfg.OnReadError)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(empty) = %+v; want defaults", cfg)
	}
}

func TestLoad_FileUnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "zig_prot: 8001\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load() error = %v; want os.ErrNotExist", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "zig_port: 8100\nasset_dir: fromfile\n")
	t.Setenv(envKeyZigPort, "8200")
	t.Setenv(envKeyZlsIndex, "zls-index.json")
	t.Setenv(envKeyMetricsAddr, "127.0.0.1:9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ZigPort != 8200 {
		t.Errorf("ZigPort = %d; want env value 8200", cfg.ZigPort)
	}
	if cfg.AssetDir != "fromfile" {
		t.Errorf("AssetDir = %q; want file value", cfg.AssetDir)
	}
	if cfg.ZlsIndex != "zls-index.json" {
		t.Errorf("ZlsIndex = %q; want env value", cfg.ZlsIndex)
	}
	if cfg.MetricsAddr != "127.0.0.1:9090" {
		t.Errorf("MetricsAddr = %q; want env value", cfg.MetricsAddr)
	}
}

func TestLoad_LeavesValidationToCaller(t *testing.T) {
	clearEnv(t)
	t.Setenv(envKeyOnReadError, "explode")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v; want nil so later overrides can fix the value", err)
	}
	if cfg.OnReadError != "explode" {
		t.Fatalf("OnReadError = %q; want env value", cfg.OnReadError)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v; want ErrInvalidConfig", err)
	}
}

func TestLoad_FileBadValue(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "zig_port: eight-thousand\n")

	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v; want ErrInvalidConfig", err)
	}
}

func TestLoad_EnvMalformedPort(t *testing.T) {
	clearEnv(t)
	t.Setenv(envKeyUnifiedPort, "three-thousand")

	_, err := Load("")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v; want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.UnifiedPort = 0 }, true},
		{"port too large", func(c *Config) { c.ZlsPort = 70000 }, true},
		{"zig and zls ports may match", func(c *Config) { c.ZlsPort = c.ZigPort }, false},
		{"unified may share a split port", func(c *Config) { c.UnifiedPort = c.ZigPort }, false},
		{"empty asset name", func(c *Config) { c.ZigArtifact = "" }, true},
		{"unknown policy", func(c *Config) { c.OnReadError = "crash" }, true},
		{"abort policy", func(c *Config) { c.OnReadError = PolicyAbort }, false},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"development log format", func(c *Config) { c.LogFormat = LogFormatDevelopment }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("Validate() error = %v; want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v; want nil", err)
			}
		})
	}
}

func TestValidateSplit(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateSplit(); err != nil {
		t.Fatalf("ValidateSplit() error = %v; want nil", err)
	}

	cfg.ZlsPort = cfg.ZigPort
	if err := cfg.ValidateSplit(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("ValidateSplit() error = %v; want ErrInvalidConfig for shared port", err)
	}

	cfg = Default()
	cfg.OnReadError = "crash"
	if err := cfg.ValidateSplit(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("ValidateSplit() error = %v; want the Validate checks too", err)
	}
}

func TestEnvOr_Present(t *testing.T) {
	t.Setenv("TEST_ENVOR_KEY", "custom-value")
	if got := envOr("TEST_ENVOR_KEY", "fallback"); got != "custom-value" {
		t.Errorf("expected 'custom-value', got %q", got)
	}
}

func TestEnvOr_Absent(t *testing.T) {
	t.Setenv("TEST_ENVOR_MISSING", "")
	if got := envOr("TEST_ENVOR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("expected 'fallback', got %q", got)
	}
}
