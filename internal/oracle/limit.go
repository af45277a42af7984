package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
	"golang.org/x/time/rate"
)

// Limited throttles calls to an oracle and bounds each one with a timeout.
// It never retries.
type Limited struct {
	next    guidebook.Oracle
	limiter *rate.Limiter
	timeout time.Duration
}

// NewLimited allows perMinute calls per minute (0 disables throttling) and
// cancels each call after timeout (0 disables the timeout).
func NewLimited(next guidebook.Oracle, perMinute int, timeout time.Duration) *Limited {
	l := &Limited{next: next, timeout: timeout}
	if perMinute > 0 {
		l.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return l
}

func (l *Limited) Generate(ctx context.Context, prompt string) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("oracle rate limit: %w", err)
		}
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.next.Generate(ctx, prompt)
}
