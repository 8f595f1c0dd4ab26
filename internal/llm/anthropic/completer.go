// Package anthropic runs pipeline roles on Anthropic Messages models.
package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
)

var _ llm.Completer = (*Completer)(nil)

type Config struct {
	URL         string
	Token       string
	Model       string
	MaxTokens   int64
	Temperature float64
	Client      *http.Client
}

func (cfg *Config) options() []option.RequestOption {
	url := cfg.URL
	if url == "" {
		url = "https://api.anthropic.com/"
	}
	url = strings.TrimRight(url, "/") + "/"

	options := []option.RequestOption{
		option.WithBaseURL(url),
	}
	if cfg.Client != nil {
		options = append(options, option.WithHTTPClient(cfg.Client))
	}
	if cfg.Token != "" {
		options = append(options, option.WithAPIKey(cfg.Token))
	}
	return options
}

type Completer struct {
	cfg      Config
	messages anthropic.MessageService
	logger   *slog.Logger
}

func NewCompleter(cfg Config, logger *slog.Logger) *Completer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Completer{
		cfg:      cfg,
		messages: anthropic.NewMessageService(cfg.options()...),
		logger:   logger,
	}
}

func (c *Completer) Name() string { return "anthropic" }

func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	body := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: anthropic.Float(c.cfg.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	message, err := c.messages.New(ctx, body)
	if err != nil {
		c.logger.Error("llm.anthropic.error",
			"req_id", common.RequestIDFromContext(ctx),
			"model", c.cfg.Model,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic: no text content")
	}
	c.logger.Debug("llm.anthropic.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"model", c.cfg.Model,
		"input_tokens", message.Usage.InputTokens,
		"output_tokens", message.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b.String(), nil
}
