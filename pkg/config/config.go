// Package config loads the Lockbook core's configuration: the writeable
// data directory and API URL spec.md §6 names as "the only required
// environment", plus logging level/format, per SPEC_FULL.md's AMBIENT
// STACK section.
//
// Grounded on dittofs/pkg/config.Config/Load for the precedence order
// (flags > env > file > defaults) and the viper/mapstructure wiring,
// simplified down from dittofs's server-sized config (database, metrics,
// telemetry, kerberos, control plane) to the handful of settings a
// client-side core handle actually needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/lockbook/lockbook/internal/bytesize"
)

// LoggingConfig controls the core's internal/logger output, mirroring
// dittofs's own LoggingConfig shape.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// Config is the core's bootstrap configuration: where it persists state
// and which server it talks to, per spec.md §6's "Environment" section.
type Config struct {
	// WriteablePath is the directory pkg/repo and pkg/docs persist into.
	WriteablePath string `mapstructure:"writeable_path" yaml:"writeable_path"`
	// APIURL is the Lockbook server this core handle syncs against.
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
	// MaxDocumentSize rejects write_document/safe_write calls whose
	// plaintext content exceeds it before any encryption or disk I/O
	// happens, a client-side mirror of the server's own per-document cap.
	MaxDocumentSize bytesize.ByteSize `mapstructure:"max_document_size" yaml:"max_document_size"`
	// Logging controls internal/logger.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// Default returns the stock configuration: $XDG_DATA_HOME/lockbook (or
// ~/.local/share/lockbook), the production API, text logs at Info.
func Default() *Config {
	return &Config{
		WriteablePath:   defaultDataDir(),
		APIURL:          "https://api.prod.lockbook.net",
		MaxDocumentSize: 500 * bytesize.MiB,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads configuration from environment (LOCKBOOK_* prefix), file,
// and defaults, in that order of decreasing precedence, matching
// dittofs/pkg/config.Load's behavior.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LOCKBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	cfg := Default()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
		// No config file: defaults plus any env overrides below.
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal config: %w", err)
	}

	applyEnvOverrides(v, cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides re-applies explicit env vars over whatever the file
// (or defaults) set, since viper.Unmarshal alone doesn't re-run
// AutomaticEnv against a struct that already has non-zero defaults.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if s := os.Getenv("LOCKBOOK_WRITEABLE_PATH"); s != "" {
		cfg.WriteablePath = s
	}
	if s := os.Getenv("LOCKBOOK_API_URL"); s != "" {
		cfg.APIURL = s
	}
	if s := os.Getenv("LOCKBOOK_LOGGING_LEVEL"); s != "" {
		cfg.Logging.Level = s
	}
	if s := os.Getenv("LOCKBOOK_LOGGING_FORMAT"); s != "" {
		cfg.Logging.Format = s
	}
}

// Validate checks the handful of required fields.
func Validate(cfg *Config) error {
	if cfg.WriteablePath == "" {
		return fmt.Errorf("writeable_path is required")
	}
	if cfg.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	switch strings.ToUpper(cfg.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}
	return nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lockbook")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lockbook")
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "lockbook")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lockbook"
	}
	return filepath.Join(home, ".local", "share", "lockbook")
}
