package runtime

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/lang-runtime/engine"
)

// Config is the yaml-facing runtime configuration.
type Config struct {
	// Sharing selects the context sharing mode: "bound", "guarded"
	// (default) or "shared".
	Sharing string `yaml:"sharing"`

	// Verify enables the diagnostic verifier.
	Verify bool `yaml:"verify"`

	// LogLevel sets runtime logging: "debug", "info", "warn", "error"
	// or "silent" (default).
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{Sharing: "guarded", LogLevel: "silent"}
}

// LoadConfig reads a yaml configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Mode maps the sharing field to an engine mode.
func (c *Config) Mode() (engine.SharingMode, error) {
	switch c.Sharing {
	case "", "guarded":
		return engine.ModeGuarded, nil
	case "bound":
		return engine.ModeBound, nil
	case "shared":
		return engine.ModeShared, nil
	default:
		return 0, fmt.Errorf("unknown sharing mode %q", c.Sharing)
	}
}

// Logger builds the configured zap logger.
func (c *Config) Logger() (*zap.Logger, error) {
	switch c.LogLevel {
	case "", "silent":
		return zap.NewNop(), nil
	}
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

// Options translates the configuration into engine options.
func (c *Config) Options() ([]engine.Option, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	log, err := c.Logger()
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithSharingMode(mode),
		engine.WithLogger(log),
	}
	if c.Verify {
		opts = append(opts, engine.WithVerification())
	}
	return opts, nil
}
