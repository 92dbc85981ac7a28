// Package oracle selects the vision provider named in the configuration.
package oracle

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/tourlens/internal/config"
	"github.com/lehigh-university-libraries/tourlens/internal/demo"
	"github.com/lehigh-university-libraries/tourlens/internal/gemini"
	"github.com/lehigh-university-libraries/tourlens/internal/ollama"
	"github.com/lehigh-university-libraries/tourlens/internal/openai"
	"github.com/lehigh-university-libraries/tourlens/internal/providers"
)

// New builds the configured provider. Missing credentials are not an error
// here; the provider reports them as unavailable on first use.
func New(cfg *config.Config) (providers.Provider, error) {
	model := cfg.ProviderModel()
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}

	var p providers.Provider
	switch cfg.Provider {
	case "gemini":
		p = gemini.New(cfg.Gemini.APIKey, model)
	case "openai":
		p = openai.New(openai.Config{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   model,
		})
	case "ollama":
		p = ollama.New(cfg.Ollama.URL, model)
	case "demo":
		p = demo.New()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	slog.Info("Vision provider ready", "provider", p.Name(), "model", model)
	return p, nil
}

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case "gemini":
		return gemini.DefaultModel
	case "openai":
		return openai.DefaultModel
	case "ollama":
		return ollama.DefaultModel
	default:
		return ""
	}
}
