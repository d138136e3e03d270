package logging

import (
	"maps"

	"github.com/goliatone/go-tms/pkg/interfaces"
)

// WithFields returns a child logger carrying the given fields, when the
// provider supports the FieldsLogger extension. The map is copied so callers
// may keep mutating theirs; nil loggers and empty maps pass through.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	fl, ok := logger.(interfaces.FieldsLogger)
	if !ok {
		return logger
	}
	copied := make(map[string]any, len(fields))
	maps.Copy(copied, fields)
	return fl.WithFields(copied)
}
