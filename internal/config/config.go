package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Analysis
	HighCardinalityThreshold int `mapstructure:"high_cardinality_threshold" yaml:"high_cardinality_threshold"`
	TopCorrelations          int `mapstructure:"top_correlations" yaml:"top_correlations"`
	InsightTimeoutSec        int `mapstructure:"insight_timeout_sec" yaml:"insight_timeout_sec"`
}

// Keys lists every settable key, in file order.
var Keys = []string{
	"api_key", "default_provider", "default_model", "max_tokens", "temperature",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"ollama_host", "ollama_timeout_sec",
	"high_cardinality_threshold", "top_correlations", "insight_timeout_sec",
}

// DotEnvFile is loaded from the working directory if present. Variables
// already set in the environment are not overridden.
var DotEnvFile = ".env"

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("default_provider", "openrouter")
	v.SetDefault("default_model", "google/gemini-2.5-flash")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.2)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	// Analysis defaults
	v.SetDefault("high_cardinality_threshold", 50)
	v.SetDefault("top_correlations", 5)
	v.SetDefault("insight_timeout_sec", 120)
}

// DefaultPath returns ~/.edalens/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edalens", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edalens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, env, file, and defaults.
// Precedence: env (EDALENS_*) > config file > defaults. GEMINI_API_KEY and
// OPENROUTER_API_KEY fill api_key when nothing else set it.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix("EDALENS")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else if path, err := DefaultPath(); err == nil {
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.APIKey == "" {
		for _, name := range []string{"OPENROUTER_API_KEY", "GEMINI_API_KEY"} {
			if k := os.Getenv(name); k != "" {
				c.APIKey = k
				break
			}
		}
	}
	return &c, nil
}

// Set updates one key from its string form, as used by `config set`.
func (c *Global) Set(key, value string) error {
	var err error
	switch key {
	case "api_key":
		c.APIKey = value
	case "default_provider":
		c.DefaultProvider = value
	case "default_model":
		c.DefaultModel = value
	case "ollama_host":
		c.OllamaHost = value
	case "temperature":
		if c.Temperature, err = cast.ToFloat64E(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	default:
		target := c.intField(key)
		if target == nil {
			return fmt.Errorf("unknown config key %q", key)
		}
		n, err := cast.ToIntE(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*target = n
	}
	return nil
}

func (c *Global) intField(key string) *int {
	switch key {
	case "max_tokens":
		return &c.MaxTokens
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	case "ollama_timeout_sec":
		return &c.OllamaTimeoutSec
	case "high_cardinality_threshold":
		return &c.HighCardinalityThreshold
	case "top_correlations":
		return &c.TopCorrelations
	case "insight_timeout_sec":
		return &c.InsightTimeoutSec
	}
	return nil
}

// HTTPTimeout is the per-request timeout for the active provider.
func (c *Global) HTTPTimeout(provider string) time.Duration {
	if provider == "ollama" && c.OllamaTimeoutSec > 0 {
		return time.Duration(c.OllamaTimeoutSec) * time.Second
	}
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}
