package openai

import (
	"net/http"
	"time"
)

// Config for an OpenAI-compatible chat completions endpoint (OpenAI,
// DeepSeek, a local Ollama /v1, ...).
type Config struct {
	Name        string  // provider label for logs, e.g. "deepseek"
	APIKey      string
	BaseURL     string  // default https://api.deepseek.com/v1
	Model       string  // default deepseek-chat
	Temperature float32 // 0..2
	MaxTokens   int
	JSONMode    bool // request response_format json_object
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func (cfg *Config) applyDefaults() {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
}
