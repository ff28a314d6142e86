// Package probe turns a raw check of a URL into a normalized
// domain.CheckOutcome. Implementations never return errors: every
// transport failure is reported as an offline outcome with a reason.
package probe

import (
	"context"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// Prober performs a single check. The engine-imposed timeout arrives as
// the context deadline.
type Prober interface {
	Probe(ctx context.Context, url string) domain.CheckOutcome
}

// Func adapts a plain function to Prober.
type Func func(ctx context.Context, url string) domain.CheckOutcome

func (f Func) Probe(ctx context.Context, url string) domain.CheckOutcome { return f(ctx, url) }

// maxBodySize caps how much of a response is read for soft-offline
// inspection.
const maxBodySize = 1 << 20

func sinceMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
