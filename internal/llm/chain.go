package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Chain is a Completer over ordered providers; the first success wins.
type Chain struct {
	completers []Completer
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, completers ...Completer) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{completers: completers, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.completers))
	for _, cp := range c.completers {
		names = append(names, cp.Name())
	}
	return strings.Join(names, ">")
}

func (c *Chain) Complete(ctx context.Context, system, prompt string) (string, error) {
	if len(c.completers) == 0 {
		return "", ErrUnavailable
	}
	var errs []error
	for _, cp := range c.completers {
		out, err := cp.Complete(ctx, system, prompt)
		if err == nil {
			return out, nil
		}
		c.logger.Warn("llm.provider.failed", "provider", cp.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", cp.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}
