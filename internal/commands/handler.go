package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// HandlerOption configures a Handler instance.
type HandlerOption[T command.Message] func(*Handler[T])

// Handler wraps a command function with the shared execution concerns:
// message validation, context and timeout management, structured logging,
// error tagging, and telemetry. It satisfies go-command's Commander
// interface.
type Handler[T command.Message] struct {
	exec      command.CommandFunc[T]
	logger    interfaces.Logger
	timeout   time.Duration
	operation string
	fields    func(msg T) map[string]any
	telemetry Telemetry[T]
}

func NewHandler[T command.Message](fn command.CommandFunc[T], opts ...HandlerOption[T]) *Handler[T] {
	if fn == nil {
		panic("commands: handler function cannot be nil")
	}
	h := &Handler[T]{
		exec:    fn,
		logger:  logging.NoOp(),
		timeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute validates the message, runs it under the handler's timeout, and
// reports the outcome to the logger and telemetry callback. Errors come back
// tagged with a go-errors category.
func (h *Handler[T]) Execute(ctx context.Context, msg T) error {
	if err := command.ValidateMessage(msg); err != nil {
		return wrapValidationError(err)
	}

	ctx, cancel := WithCommandTimeout(EnsureContext(ctx), h.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return wrapContextError(err)
	}

	logger := logging.WithFields(h.logger, h.logFields(msg))
	logger.Debug("command.execute.start")

	started := time.Now()
	execErr := h.exec(ctx, msg)
	if execErr == nil {
		execErr = ctx.Err()
	}

	if h.telemetry != nil {
		h.telemetry(ctx, msg, TelemetryInfo{
			Command:   command.GetMessageType(msg),
			Operation: h.operation,
			Fields:    h.logFields(msg),
			Duration:  time.Since(started),
			Error:     execErr,
			Status:    telemetryStatus(ctx, execErr),
			Logger:    logger,
		})
	}

	switch {
	case execErr == nil:
		logger.Info("command.execute.success")
		return nil
	case ctx.Err() != nil && execErr == ctx.Err():
		logger.Error("command.execute.context_error", "error", execErr)
		return wrapContextError(execErr)
	default:
		logger.Error("command.execute.failed", "error", execErr)
		return wrapExecuteError(execErr)
	}
}

func (h *Handler[T]) logFields(msg T) map[string]any {
	fields := map[string]any{"command": command.GetMessageType(msg)}
	if h.operation != "" {
		fields["operation"] = h.operation
	}
	if h.fields != nil {
		for k, v := range h.fields(msg) {
			fields[k] = v
		}
	}
	return fields
}

// WithTimeout overrides the default execution timeout; zero or negative
// disables it.
func WithTimeout[T command.Message](timeout time.Duration) HandlerOption[T] {
	return func(h *Handler[T]) {
		if timeout <= 0 {
			timeout = 0
		}
		h.timeout = timeout
	}
}

// WithLogger injects the execution logger.
func WithLogger[T command.Message](logger interfaces.Logger) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.logger = EnsureLogger(logger)
	}
}

// WithOperation names the operation in every log entry.
func WithOperation[T command.Message](operation string) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.operation = operation
	}
}

// WithMessageFields derives extra structured log fields from the message.
func WithMessageFields[T command.Message](fn func(msg T) map[string]any) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.fields = fn
	}
}

// WithTelemetry attaches a callback invoked after every execution.
func WithTelemetry[T command.Message](telemetry Telemetry[T]) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.telemetry = telemetry
	}
}

func telemetryStatus(ctx context.Context, err error) TelemetryStatus {
	switch {
	case err == nil:
		return TelemetryStatusSuccess
	case ctx.Err() != nil && err == ctx.Err():
		return TelemetryStatusContextError
	default:
		return TelemetryStatusFailed
	}
}
