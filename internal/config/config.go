// Package config loads the runtime's YAML configuration: which LLM
// dialect and provider to talk to, the agent loop's step/retry
// budget, the timer scheduler's tick, and the plugin allow/deny list.
//
// Grounded on the teacher's internal/config/config.go Load: env-var
// expansion before parse, strict (KnownFields) yaml decoding,
// single-document enforcement, then applyDefaults and validateConfig
// passes — scoped down to this runtime's much smaller configuration
// surface.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Loop     LoopConfig     `yaml:"loop"`
	Timer    TimerConfig    `yaml:"timer"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig selects and configures the LLM Client dialect (spec
// §6's two wire protocols).
type ProviderConfig struct {
	// Dialect is "blockstyle" or "chatstyle".
	Dialect   string `yaml:"dialect"`
	APIBase   string `yaml:"api_base"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// LoopConfig configures the Agent Loop and its Retry Policy (spec
// §4.4).
type LoopConfig struct {
	MaxSteps      int           `yaml:"max_steps"`
	TokenLimit    int           `yaml:"token_limit"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	Multiplier    float64       `yaml:"multiplier"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// TimerConfig configures the timer subsystem (spec §4.7, §6).
type TimerConfig struct {
	StoragePath  string        `yaml:"storage_path"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

// PluginsConfig controls which plugins load (spec §4.7).
type PluginsConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Allow       []string `yaml:"allow"`
	Deny        []string `yaml:"deny"`
	ShellScripts []string `yaml:"shell_scripts"`
}

// LoggingConfig configures the ambient slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, parses and defaults a Config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected single document")
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.Dialect == "" {
		cfg.Provider.Dialect = "chatstyle"
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 4096
	}

	if cfg.Loop.MaxSteps == 0 {
		cfg.Loop.MaxSteps = 25
	}
	if cfg.Loop.TokenLimit == 0 {
		cfg.Loop.TokenLimit = 100_000
	}
	if cfg.Loop.MaxAttempts == 0 {
		cfg.Loop.MaxAttempts = 3
	}
	if cfg.Loop.BaseDelay == 0 {
		cfg.Loop.BaseDelay = time.Second
	}
	if cfg.Loop.MaxDelay == 0 {
		cfg.Loop.MaxDelay = 30 * time.Second
	}
	if cfg.Loop.Multiplier == 0 {
		cfg.Loop.Multiplier = 2
	}
	if cfg.Loop.RequestTimeout == 0 {
		cfg.Loop.RequestTimeout = 120 * time.Second
	}

	if cfg.Timer.TickInterval == 0 {
		cfg.Timer.TickInterval = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	switch cfg.Provider.Dialect {
	case "blockstyle", "chatstyle":
	default:
		return fmt.Errorf("provider.dialect must be blockstyle or chatstyle, got %q", cfg.Provider.Dialect)
	}
	if cfg.Provider.APIBase == "" {
		return fmt.Errorf("provider.api_base is required")
	}
	if cfg.Provider.Model == "" {
		return fmt.Errorf("provider.model is required")
	}
	if cfg.Loop.MaxSteps < 0 {
		return fmt.Errorf("loop.max_steps must be >= 0")
	}
	return nil
}
