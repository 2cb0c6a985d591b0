// Package config provides mirror configuration loaded from an optional YAML
// file and env vars. All fields have safe defaults so the binary runs locally
// without any setup, serving the assets under ./src like the dev server did.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for any rejected setting.
var ErrInvalidConfig = errors.New("invalid config")

// ReadErrorPolicy decides what a listener does when an asset cannot be read
// at request time.
type ReadErrorPolicy string

const (
	// PolicyStatus logs the failure and answers 500 Internal Server Error.
	PolicyStatus ReadErrorPolicy = "status"
	// PolicyAbort logs the failure and drops the connection without a response.
	PolicyAbort ReadErrorPolicy = "abort"
)

// Valid reports whether p is a known policy.
func (p ReadErrorPolicy) Valid() bool {
	return p == PolicyStatus || p == PolicyAbort
}

// Config holds runtime configuration for the mirror.
type Config struct {
	Host        string `yaml:"host"`         // MIRROR_HOST, default: "0.0.0.0"
	UnifiedPort int    `yaml:"unified_port"` // MIRROR_UNIFIED_PORT, default: 3000
	ZigPort     int    `yaml:"zig_port"`     // MIRROR_ZIG_PORT, default: 8000
	ZlsPort     int    `yaml:"zls_port"`     // MIRROR_ZLS_PORT, default: 9000

	// Assets, relative to AssetDir.
	AssetDir    string `yaml:"asset_dir"`    // MIRROR_ASSET_DIR, default: "src"
	ZigIndex    string `yaml:"zig_index"`    // MIRROR_ZIG_INDEX, default: "zig.json"
	ZigArtifact string `yaml:"zig_artifact"` // MIRROR_ZIG_ARTIFACT, default: "zig.tar.xz"
	ZlsIndex    string `yaml:"zls_index"`    // MIRROR_ZLS_INDEX, default: "zls.json"
	ZlsArtifact string `yaml:"zls_artifact"` // MIRROR_ZLS_ARTIFACT, default: "zls"

	OnReadError ReadErrorPolicy `yaml:"on_read_error"` // MIRROR_ON_READ_ERROR, default: "status"
	MetricsAddr string          `yaml:"metrics_addr"`  // MIRROR_METRICS_ADDR, default: "" (disabled)
	LogFormat   string          `yaml:"log_format"`    // MIRROR_LOG_FORMAT, default: "production"
}

const (
	envKeyHost        = "MIRROR_HOST"
	envKeyUnifiedPort = "MIRROR_UNIFIED_PORT"
	envKeyZigPort     = "MIRROR_ZIG_PORT"
	envKeyZlsPort     = "MIRROR_ZLS_PORT"
	envKeyAssetDir    = "MIRROR_ASSET_DIR"
	envKeyZigIndex    = "MIRROR_ZIG_INDEX"
	envKeyZigArtifact = "MIRROR_ZIG_ARTIFACT"
	envKeyZlsIndex    = "MIRROR_ZLS_INDEX"
	envKeyZlsArtifact = "MIRROR_ZLS_ARTIFACT"
	envKeyOnReadError = "MIRROR_ON_READ_ERROR"
	envKeyMetricsAddr = "MIRROR_METRICS_ADDR"
	envKeyLogFormat   = "MIRROR_LOG_FORMAT"
)

// Log formats accepted in LogFormat.
const (
	LogFormatProduction  = "production"
	LogFormatDevelopment = "development"
)

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Host:        "0.0.0.0",
		UnifiedPort: 3000,
		ZigPort:     8000,
		ZlsPort:     9000,
		AssetDir:    "src",
		ZigIndex:    "zig.json",
		ZigArtifact: "zig.tar.xz",
		ZlsIndex:    "zls.json",
		ZlsArtifact: "zls",
		OnReadError: PolicyStatus,
		LogFormat:   LogFormatProduction,
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if
// path is non-empty), then environment variables. The result is not
// validated: callers layer their own overrides on top and then call Validate
// or ValidateSplit.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse config file %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays data onto cfg. Unknown keys are rejected so typos in the
// file don't silently fall back to defaults.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Host = envOr(envKeyHost, cfg.Host)
	cfg.AssetDir = envOr(envKeyAssetDir, cfg.AssetDir)
	cfg.ZigIndex = envOr(envKeyZigIndex, cfg.ZigIndex)
	cfg.ZigArtifact = envOr(envKeyZigArtifact, cfg.ZigArtifact)
	cfg.ZlsIndex = envOr(envKeyZlsIndex, cfg.ZlsIndex)
	cfg.ZlsArtifact = envOr(envKeyZlsArtifact, cfg.ZlsArtifact)
	cfg.OnReadError = ReadErrorPolicy(envOr(envKeyOnReadError, string(cfg.OnReadError)))
	cfg.MetricsAddr = envOr(envKeyMetricsAddr, cfg.MetricsAddr)
	cfg.LogFormat = envOr(envKeyLogFormat, cfg.LogFormat)

	var err error
	if cfg.UnifiedPort, err = envIntOr(envKeyUnifiedPort, cfg.UnifiedPort); err != nil {
		return err
	}
	if cfg.ZigPort, err = envIntOr(envKeyZigPort, cfg.ZigPort); err != nil {
		return err
	}
	if cfg.ZlsPort, err = envIntOr(envKeyZlsPort, cfg.ZlsPort); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for values no listener could run with.
// It does not compare ports across listeners; see ValidateSplit.
func (c Config) Validate() error {
	for name, port := range map[string]int{
		"unified_port": c.UnifiedPort,
		"zig_port":     c.ZigPort,
		"zls_port":     c.ZlsPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%w: %s %d out of range", ErrInvalidConfig, name, port)
		}
	}

	for name, file := range map[string]string{
		"zig_index":    c.ZigIndex,
		"zig_artifact": c.ZigArtifact,
		"zls_index":    c.ZlsIndex,
		"zls_artifact": c.ZlsArtifact,
	} {
		if file == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, name)
		}
	}

	if !c.OnReadError.Valid() {
		return fmt.Errorf("%w: on_read_error %q (want %q or %q)",
			ErrInvalidConfig, c.OnReadError, PolicyStatus, PolicyAbort)
	}
	if c.LogFormat != LogFormatProduction && c.LogFormat != LogFormatDevelopment {
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ValidateSplit is Validate plus the checks for running zig and zls on
// separate listeners.
func (c Config) ValidateSplit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ZigPort == c.ZlsPort {
		return fmt.Errorf("%w: zig_port and zls_port are both %d", ErrInvalidConfig, c.ZigPort)
	}
	return nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr is envOr for integer settings. A set but malformed value is an
// error rather than a silent fallback.
func envIntOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
	}
	return n, nil
}
