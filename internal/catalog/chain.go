package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Chain tries its sources in order; the first successful read wins.
type Chain struct {
	sources []Source
	logger  *slog.Logger
}

func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{sources: sources, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *Chain) Fetch(ctx context.Context) (Result, error) {
	if len(c.sources) == 0 {
		return Failed("Sin fuentes de catálogo configuradas", nil), nil
	}
	var (
		last Result
		errs []error
	)
	for _, s := range c.sources {
		res, err := s.Fetch(ctx)
		if err == nil && res.Success {
			return res, nil
		}
		c.logger.Warn("catalog.source.failed", "source", s.Name(), "error", err, "detail", res.Detail)
		last = res
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return last, errors.Join(errs...)
}
