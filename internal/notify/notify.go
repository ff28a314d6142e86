// Package notify delivers human-facing notifications for failure alerts.
// Delivery is best-effort; callers log and otherwise ignore errors.
package notify

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a notification out to every configured sink. All sinks are
// tried; their errors are combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Log writes notifications to the structured log. It is the sink used
// when no outbound channel is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(_ context.Context, title, text string) error {
	l.Logger.Warn("notification", zap.String("title", title), zap.String("body", text))
	return nil
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, title, text string) error

func (f Func) Send(ctx context.Context, title, text string) error { return f(ctx, title, text) }
