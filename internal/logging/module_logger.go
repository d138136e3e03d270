package logging

import (
	"context"

	"github.com/goliatone/go-tms/pkg/interfaces"
)

const (
	rootModule      = "tms"
	diffModule      = "tms.diff"
	sagaModule      = "tms.saga"
	refreshModule   = "tms.refresh"
	stalenessModule = "tms.staleness"
	storeModule     = "tms.store"
	commandsModule  = "tms.commands"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// DiffLogger returns the logger namespace reserved for the diff engine.
func DiffLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, diffModule)
}

// SagaLogger returns the logger namespace reserved for the creation saga.
func SagaLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sagaModule)
}

// RefreshLogger returns the logger namespace reserved for the refresh saga.
func RefreshLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, refreshModule)
}

// StalenessLogger returns the logger namespace reserved for the classifier.
func StalenessLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, stalenessModule)
}

// StoreLogger returns the logger namespace reserved for persistence adapters.
func StoreLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storeModule)
}

// CommandsLogger returns the logger namespace reserved for command handlers.
func CommandsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, commandsModule)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
