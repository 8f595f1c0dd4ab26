// Package ollama runs pipeline roles on a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

type Config struct {
	BaseURL     string // default http://127.0.0.1:11434
	Model       string // default llama3
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	model  llms.Model
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	model, err := lcollama.New(
		lcollama.WithModel(cfg.Model),
		lcollama.WithServerURL(strings.TrimRight(cfg.BaseURL, "/")),
		lcollama.WithFormat("json"),
		lcollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "ollama client", err)
	}
	return &Client{cfg: cfg, model: model, logger: logger}, nil
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(float64(c.cfg.Temperature)))
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama: no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", errors.New("ollama: empty response")
	}
	c.logger.Debug("llm.ollama.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"model", c.cfg.Model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
