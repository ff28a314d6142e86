package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// RetryChecker re-runs an offline probe up to Attempts times in total,
// sleeping Backoff between attempts. It gives up early when ctx ends.
type RetryChecker struct {
	Inner    Prober
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Probe(ctx context.Context, target string) domain.CheckOutcome {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last domain.CheckOutcome
	for i := 0; i < attempts; i++ {
		last = r.Inner.Probe(ctx, target)
		if last.Status == domain.StatusOnline {
			return last
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			last.Error = fmt.Sprintf("%s (gave up after %d attempts)", last.Error, i+1)
			return last
		case <-time.After(r.Backoff):
		}
	}
	if attempts > 1 {
		last.Error = fmt.Sprintf("%s (after %d attempts)", last.Error, attempts)
	}
	return last
}
