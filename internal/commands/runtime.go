package commands

import (
	"context"
	"time"

	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// DefaultCommandTimeout bounds a command execution when the handler does not
// set its own.
const DefaultCommandTimeout = 30 * time.Second

// EnsureContext guards against nil contexts from callers.
func EnsureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// WithCommandTimeout wraps ctx with the given timeout. Zero and negative
// timeouts leave the context unbounded.
func WithCommandTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureLogger guards against nil loggers from callers.
func EnsureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger != nil {
		return logger
	}
	return logging.NoOp()
}
