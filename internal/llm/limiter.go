package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// Limited throttles a Completer with a token bucket.
type Limited struct {
	Completer
	limiter *rate.Limiter
}

// NewLimited allows perMinute calls per minute with a burst of one. A
// non-positive rate returns c unchanged.
func NewLimited(c Completer, perMinute int) Completer {
	if perMinute <= 0 {
		return c
	}
	return &Limited{
		Completer: c,
		limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1),
	}
}

func (l *Limited) Complete(ctx context.Context, system, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.Completer.Complete(ctx, system, prompt)
}
