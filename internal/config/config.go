package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/tourlens/internal/guide"
	"gopkg.in/yaml.v3"
)

// Config represents the complete tourlens configuration
type Config struct {
	Provider string        `yaml:"provider"` // gemini, openai, ollama, demo
	Model    string        `yaml:"model"`    // overrides the provider's own model
	Server   ServerConfig  `yaml:"server"`
	Session  SessionConfig `yaml:"session"`
	Guide    GuideConfig   `yaml:"guide"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	Ollama   OllamaConfig  `yaml:"ollama"`
	Log      LogConfig     `yaml:"log"`
}

// ServerConfig contains HTTP settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	StaticDir       string        `yaml:"static_dir"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SessionConfig contains session store settings
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"` // 0 keeps sessions until exit
}

// GuideConfig contains oracle call limits
type GuideConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	SceneMemoryWindow int           `yaml:"scene_memory_window"`
	AskMemoryWindow   int           `yaml:"ask_memory_window"`
	SceneMaxTokens    int           `yaml:"scene_max_tokens"`
	AskMaxTokens      int           `yaml:"ask_max_tokens"`
	AskImageMaxDim    int           `yaml:"ask_image_max_dim"`
	Temperature       *float64      `yaml:"temperature"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var providers = []string{"gemini", "openai", "ollama", "demo"}

// Load reads an optional YAML file, applies environment overrides and fills
// defaults. An empty path skips the file. Unknown keys in the file are errors.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Provider, "TOURLENS_PROVIDER")
	setString(&c.Model, "TOURLENS_MODEL")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Ollama.URL, "OLLAMA_URL", "OLLAMA_HOST")
	setString(&c.Ollama.Model, "OLLAMA_MODEL")

	if v := strings.TrimSpace(getenv("TOURLENS_SESSION_TTL")); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOURLENS_SESSION_TTL %q: %w", v, err)
		}
		c.Session.TTL = ttl
	}
	return nil
}

// ApplyDefaults fills every unset field
func (c *Config) ApplyDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = "gemini"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8888
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 10 << 20
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Guide.Timeout == 0 {
		c.Guide.Timeout = 30 * time.Second
	}
	if c.Guide.SceneMemoryWindow == 0 {
		c.Guide.SceneMemoryWindow = 3
	}
	if c.Guide.AskMemoryWindow == 0 {
		c.Guide.AskMemoryWindow = 5
	}
	if c.Guide.SceneMaxTokens == 0 {
		c.Guide.SceneMaxTokens = 1000
	}
	if c.Guide.AskMaxTokens == 0 {
		c.Guide.AskMaxTokens = 500
	}
	if c.Guide.AskImageMaxDim == 0 {
		c.Guide.AskImageMaxDim = 512
	}
	if c.Guide.Temperature == nil {
		t := 0.4
		c.Guide.Temperature = &t
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ProviderModel returns the model for the selected provider; the top-level
// model wins over the provider section.
func (c *Config) ProviderModel() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case "openai":
		return c.OpenAI.Model
	case "gemini":
		return c.Gemini.Model
	case "ollama":
		return c.Ollama.Model
	default:
		return ""
	}
}

// GuideOptions maps the guide section onto service options
func (c *Config) GuideOptions() guide.Options {
	opts := guide.Options{
		Timeout:           c.Guide.Timeout,
		SceneMemoryWindow: c.Guide.SceneMemoryWindow,
		AskMemoryWindow:   c.Guide.AskMemoryWindow,
		SceneMaxTokens:    c.Guide.SceneMaxTokens,
		AskMaxTokens:      c.Guide.AskMaxTokens,
		AskImageMaxDim:    c.Guide.AskImageMaxDim,
	}
	if c.Guide.Temperature != nil {
		opts.Temperature = *c.Guide.Temperature
	}
	return opts
}

// Validate checks the configuration for consistency
func Validate(cfg *Config) error {
	known := false
	for _, p := range providers {
		if cfg.Provider == p {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("provider: unsupported provider %q (want one of %s)", cfg.Provider, strings.Join(providers, ", "))
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes: must not be negative")
	}
	if cfg.Guide.Timeout < 0 {
		return fmt.Errorf("guide.timeout: must not be negative")
	}

	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session.ttl: must not be negative")
	}
	// A session must not expire while one of its oracle calls is running.
	if cfg.Session.TTL > 0 && cfg.Session.TTL <= cfg.Guide.Timeout {
		return fmt.Errorf("session.ttl: %s must exceed guide.timeout %s", cfg.Session.TTL, cfg.Guide.Timeout)
	}
	for key, v := range map[string]int{
		"guide.scene_memory_window": cfg.Guide.SceneMemoryWindow,
		"guide.ask_memory_window":   cfg.Guide.AskMemoryWindow,
		"guide.scene_max_tokens":    cfg.Guide.SceneMaxTokens,
		"guide.ask_max_tokens":      cfg.Guide.AskMaxTokens,
		"guide.ask_image_max_dim":   cfg.Guide.AskImageMaxDim,
	} {
		if v < 0 {
			return fmt.Errorf("%s: must not be negative", key)
		}
	}
	if t := cfg.Guide.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("guide.temperature: %v outside [0, 2]", *t)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	return nil
}
