package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory under $HOME holding config and sessions.
const DirName = ".vesselvision"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	SessionsDir     string  `mapstructure:"sessions_dir" yaml:"sessions_dir"`
	ChartsDir       string  `mapstructure:"charts_dir" yaml:"charts_dir"`

	// Table normalization
	HeaderScanRows int `mapstructure:"header_scan_rows" yaml:"header_scan_rows"`
	HeaderMinCells int `mapstructure:"header_min_cells" yaml:"header_min_cells"`
	ContextRows    int `mapstructure:"context_rows" yaml:"context_rows"`
	ContextChars   int `mapstructure:"context_chars" yaml:"context_chars"`

	// Models catalog sync
	ModelsCatalogURL string `mapstructure:"models_catalog_url" yaml:"models_catalog_url,omitempty"`
	ModelsAutoSync   bool   `mapstructure:"models_auto_sync" yaml:"models_auto_sync"`
	ModelsMerge      bool   `mapstructure:"models_merge" yaml:"models_merge"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// HTTP API
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// ErrUnknownKey is returned by Set for keys that are not settable.
var ErrUnknownKey = errors.New("unknown config key")

func defaults(v *viper.Viper) {
	v.SetDefault("default_model", "llama3-70b-8192")
	v.SetDefault("default_provider", "groq")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("header_scan_rows", 5)
	v.SetDefault("header_min_cells", 3)
	v.SetDefault("context_rows", 10)
	v.SetDefault("context_chars", 4000)
	v.SetDefault("models_auto_sync", false)
	v.SetDefault("models_merge", true)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.vesselvision/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
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

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first so GROQ_API_KEY and friends can live there.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("VESSELVISION")
	v.AutomaticEnv()
	defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	dir, err := homeDir()
	if err != nil {
		return nil, err
	}
	if c.SessionsDir == "" {
		c.SessionsDir = filepath.Join(dir, "sessions")
	}
	if c.ChartsDir == "" {
		c.ChartsDir = filepath.Join(dir, "charts")
	}
	return &c, nil
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses val and assigns it to key.
func (c *Global) Set(key, val string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return set(c, strings.TrimSpace(val))
}

var setters = map[string]func(c *Global, v string) error{
	"api_key":       func(c *Global, v string) error { c.APIKey = v; return nil },
	"default_model": func(c *Global, v string) error { c.DefaultModel = v; return nil },
	"default_provider": func(c *Global, v string) error {
		switch strings.ToLower(v) {
		case "groq", "openrouter", "openai":
			c.DefaultProvider = strings.ToLower(v)
		case "ollama", "local":
			c.DefaultProvider = "ollama"
		default:
			return fmt.Errorf("invalid default_provider: %s (use groq, openrouter, openai or ollama)", v)
		}
		return nil
	},
	"base_url":            func(c *Global, v string) error { c.BaseURL = v; return nil },
	"max_tokens":          intSetter("max_tokens", func(c *Global) *int { return &c.MaxTokens }),
	"sessions_dir":        func(c *Global, v string) error { c.SessionsDir = v; return nil },
	"charts_dir":          func(c *Global, v string) error { c.ChartsDir = v; return nil },
	"header_scan_rows":    intSetter("header_scan_rows", func(c *Global) *int { return &c.HeaderScanRows }),
	"header_min_cells":    intSetter("header_min_cells", func(c *Global) *int { return &c.HeaderMinCells }),
	"context_rows":        intSetter("context_rows", func(c *Global) *int { return &c.ContextRows }),
	"context_chars":       intSetter("context_chars", func(c *Global) *int { return &c.ContextChars }),
	"models_catalog_url":  func(c *Global, v string) error { c.ModelsCatalogURL = v; return nil },
	"models_auto_sync":    boolSetter("models_auto_sync", func(c *Global) *bool { return &c.ModelsAutoSync }),
	"models_merge":        boolSetter("models_merge", func(c *Global) *bool { return &c.ModelsMerge }),
	"http_timeout_sec":    intSetter("http_timeout_sec", func(c *Global) *int { return &c.HTTPTimeoutSec }),
	"retry_max_attempts":  intSetter("retry_max_attempts", func(c *Global) *int { return &c.RetryMaxAttempts }),
	"retry_base_delay_ms": intSetter("retry_base_delay_ms", func(c *Global) *int { return &c.RetryBaseDelayMs }),
	"retry_max_delay_ms":  intSetter("retry_max_delay_ms", func(c *Global) *int { return &c.RetryMaxDelayMs }),
	"ollama_host":         func(c *Global, v string) error { c.OllamaHost = v; return nil },
	"ollama_timeout_sec":  intSetter("ollama_timeout_sec", func(c *Global) *int { return &c.OllamaTimeoutSec }),
	"listen_addr":         func(c *Global, v string) error { c.ListenAddr = v; return nil },
	"temperature": func(c *Global, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v", v)
		}
		c.Temperature = f
		return nil
	},
}

func intSetter(key string, field func(*Global) *int) func(*Global, string) error {
	return func(c *Global, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, v)
		}
		*field(c) = i
		return nil
	}
}

func boolSetter(key string, field func(*Global) *bool) func(*Global, string) error {
	return func(c *Global, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, v)
		}
		*field(c) = b
		return nil
	}
}
