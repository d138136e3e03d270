package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrRetryAttemptsInvalid = errors.New("tms config: retry attempts must be positive")
var ErrRetryBackoffInvalid = errors.New("tms config: retry backoff durations must be positive")
var ErrRefreshConcurrencyInvalid = errors.New("tms config: refresh concurrency must be positive")
var ErrStorageProviderUnknown = errors.New("tms config: storage provider is invalid")
var ErrLoggingProviderRequired = errors.New("tms config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("tms config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("tms config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("tms config: logging format is invalid")
var ErrDueDateLeadInvalid = errors.New("tms config: vendor due-date lead must be zero or positive")

// Config aggregates feature flags and adapter bindings for the TMS module.
// Fields intentionally use simple types so host applications can extend them
// later.
type Config struct {
	Enabled         bool
	DefaultLanguage string
	Vendor          VendorConfig
	Translations    TranslationsConfig
	Retry           RetryConfig
	Refresh         RefreshConfig
	Storage         StorageConfig
	Cache           CacheConfig
	Commands        CommandsConfig
	Features        Features
	Logging         LoggingConfig
}

// VendorConfig carries the defaults applied to vendor projects when a request
// does not override them.
type VendorConfig struct {
	DefaultTemplateID string
	DueDateLead       time.Duration
}

// TranslationsConfig scopes which document types enter the pipeline. An empty
// type list makes every type translatable.
type TranslationsConfig struct {
	TranslatableTypes []string
}

// RetryConfig is the shared bounded-backoff policy applied to saga steps that
// reach external systems.
type RetryConfig struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// RefreshConfig bounds the refresh saga's vendor download fan-out.
type RefreshConfig struct {
	Concurrency int
}

// StorageConfig selects the content repository implementation.
type StorageConfig struct {
	Provider  string
	SQLiteDSN string
}

// CacheConfig captures read-cache behaviour for the bun-backed store.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// CommandsConfig captures optional command-layer behaviour.
type CommandsConfig struct {
	Enabled                bool
	AutoRegisterDispatcher bool
}

// Features toggles module functionality.
type Features struct {
	Logger bool
	Cache  bool
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns opinionated defaults for an embedded deployment.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultLanguage: "en",
		Vendor: VendorConfig{
			DueDateLead: 14 * 24 * time.Hour,
		},
		Translations: TranslationsConfig{},
		Retry: RetryConfig{
			Attempts:    3,
			BaseBackoff: 250 * time.Millisecond,
			MaxBackoff:  5 * time.Second,
		},
		Refresh: RefreshConfig{
			Concurrency: 3,
		},
		Storage: StorageConfig{
			Provider:  "memory",
			SQLiteDSN: "file::memory:?cache=shared",
		},
		Cache: CacheConfig{
			Enabled:    false,
			DefaultTTL: time.Minute,
		},
		Commands: CommandsConfig{},
		Features: Features{},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
			Format:   "",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if cfg.Retry.Attempts <= 0 {
		return ErrRetryAttemptsInvalid
	}
	if cfg.Retry.BaseBackoff <= 0 || cfg.Retry.MaxBackoff <= 0 {
		return ErrRetryBackoffInvalid
	}
	if cfg.Refresh.Concurrency <= 0 {
		return ErrRefreshConcurrencyInvalid
	}
	if cfg.Vendor.DueDateLead < 0 {
		return ErrDueDateLeadInvalid
	}
	if provider := normalizeProvider(cfg.Storage.Provider); provider != "" && !isSupportedStorage(provider) {
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, provider)
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedLoggingProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedStorage(provider string) bool {
	switch provider {
	case "memory", "sqlite", "bun":
		return true
	default:
		return false
	}
}

func isSupportedLoggingProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
