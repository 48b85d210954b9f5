// Package config loads application configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Repair      RepairConfig      `yaml:"repair" mapstructure:"repair"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key              string  `yaml:"key" mapstructure:"key"`
	Model            string  `yaml:"model" mapstructure:"model"`
	MaxTokens        int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	WebSearchMaxUses int     `yaml:"web_search_max_uses" mapstructure:"web_search_max_uses"`
	RequestRate      float64 `yaml:"request_rate" mapstructure:"request_rate"`
}

// RateLimitConfig configures the sliding-window governor over web searches.
type RateLimitConfig struct {
	SearchCeiling int `yaml:"search_ceiling" mapstructure:"search_ceiling"`
	WindowSecs    int `yaml:"window_secs" mapstructure:"window_secs"`
}

// ConcurrencyConfig bounds the adaptive concurrency budget.
type ConcurrencyConfig struct {
	Initial    int `yaml:"initial" mapstructure:"initial"`
	Floor      int `yaml:"floor" mapstructure:"floor"`
	Ceiling    int `yaml:"ceiling" mapstructure:"ceiling"`
	AdaptEvery int `yaml:"adapt_every" mapstructure:"adapt_every"`
}

// RetryConfig configures transient retries per API request.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// RepairConfig bounds corrective follow-up requests for invalid payloads.
type RepairConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// PathsConfig locates inputs and outputs.
type PathsConfig struct {
	Input        string `yaml:"input" mapstructure:"input"`
	RawDir       string `yaml:"raw_dir" mapstructure:"raw_dir"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
	SystemPrompt string `yaml:"system_prompt" mapstructure:"system_prompt"`
	Ledger       string `yaml:"ledger" mapstructure:"ledger"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCREENER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.timeout_secs", 180)
	v.SetDefault("anthropic.web_search_max_uses", 5)
	v.SetDefault("anthropic.request_rate", 2.0)
	v.SetDefault("rate_limit.search_ceiling", 30)
	v.SetDefault("rate_limit.window_secs", 60)
	v.SetDefault("concurrency.initial", 3)
	v.SetDefault("concurrency.floor", 1)
	v.SetDefault("concurrency.ceiling", 10)
	v.SetDefault("concurrency.adapt_every", 10)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff_ms", 2000)
	v.SetDefault("retry.max_backoff_ms", 120000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("repair.max_attempts", 2)
	v.SetDefault("paths.input", "data/input/companies.csv")
	v.SetDefault("paths.raw_dir", "data/raw")
	v.SetDefault("paths.output_dir", "data/output")
	v.SetDefault("paths.system_prompt", "prompts/system_prompt.txt")
	v.SetDefault("paths.ledger", "data/raw/ledger.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// The standard SDK variable works as a fallback for the key.
	if cfg.Anthropic.Key == "" {
		cfg.Anthropic.Key = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// ValidateRun checks the fatal preconditions for a processing run: a missing
// credential, prompt, or input file aborts before anything is dispatched.
func (c *Config) ValidateRun() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic API key not set (SCREENER_ANTHROPIC_KEY or ANTHROPIC_API_KEY)")
	}
	if _, err := os.Stat(c.Paths.SystemPrompt); err != nil {
		return eris.Wrapf(err, "config: system prompt %s", c.Paths.SystemPrompt)
	}
	if _, err := os.Stat(c.Paths.Input); err != nil {
		return eris.Wrapf(err, "config: input file %s", c.Paths.Input)
	}
	return nil
}

// LoadSystemPrompt reads the research instructions blob.
func (c *Config) LoadSystemPrompt() (string, error) {
	data, err := os.ReadFile(c.Paths.SystemPrompt)
	if err != nil {
		return "", eris.Wrapf(err, "config: read system prompt %s", c.Paths.SystemPrompt)
	}
	return string(data), nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
