// Package provider builds the configured completer chain.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm/anthropic"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm/gemini"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm/ollama"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm/openai"
)

// New builds one completer from its configuration.
func New(p common.ProviderConfig, cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	var c llm.Completer
	switch p.Name {
	case common.ProviderDeepSeek, common.ProviderOpenAI:
		c = openai.NewClient(openai.Config{
			Name:        p.Name,
			APIKey:      p.APIKey,
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			Temperature: cfg.Temperature,
			JSONMode:    true,
			Timeout:     cfg.Timeout,
		}, logger)
	case common.ProviderAnthropic:
		c = anthropic.NewCompleter(anthropic.Config{
			URL:         p.BaseURL,
			Token:       p.APIKey,
			Model:       p.Model,
			Temperature: float64(cfg.Temperature),
		}, logger)
	case common.ProviderGemini:
		g := gemini.New(p.APIKey, p.Model, logger)
		g.Temperature = cfg.Temperature
		g.Endpoint = p.BaseURL
		c = g
	case common.ProviderOllama:
		oc, err := ollama.NewClient(ollama.Config{
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		c = oc
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown llm provider %q", p.Name), common.ErrInvalidInput)
	}
	return llm.NewLimited(c, p.RatePerMinute), nil
}

// FromConfig builds the ordered fallback chain of every configured provider.
// An empty configuration yields an empty chain, which reports unavailability
// on every call.
func FromConfig(cfg common.LLMConfig, logger *slog.Logger) (*llm.Chain, error) {
	if logger == nil {
		logger = slog.Default()
	}
	completers := make([]llm.Completer, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		c, err := New(p, cfg, logger)
		if err != nil {
			return nil, err
		}
		completers = append(completers, c)
	}
	logger.Info("llm.providers.configured", "count", len(completers))
	return llm.NewChain(logger, completers...), nil
}
