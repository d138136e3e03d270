package commands

import (
	"strings"

	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

const commandModuleRoot = "tms.commands"

// CommandLogger scopes a logger to one command module under the shared
// command namespace, tagging entries so they group in aggregated output.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
