package tms

import "github.com/goliatone/go-tms/internal/runtimeconfig"

var (
	ErrRetryAttemptsInvalid      = runtimeconfig.ErrRetryAttemptsInvalid
	ErrRetryBackoffInvalid       = runtimeconfig.ErrRetryBackoffInvalid
	ErrRefreshConcurrencyInvalid = runtimeconfig.ErrRefreshConcurrencyInvalid
	ErrStorageProviderUnknown    = runtimeconfig.ErrStorageProviderUnknown
	ErrLoggingProviderRequired   = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown    = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid       = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid      = runtimeconfig.ErrLoggingFormatInvalid
	ErrDueDateLeadInvalid        = runtimeconfig.ErrDueDateLeadInvalid
)

type (
	Config             = runtimeconfig.Config
	VendorConfig       = runtimeconfig.VendorConfig
	TranslationsConfig = runtimeconfig.TranslationsConfig
	RetryConfig        = runtimeconfig.RetryConfig
	RefreshConfig      = runtimeconfig.RefreshConfig
	StorageConfig      = runtimeconfig.StorageConfig
	CacheConfig        = runtimeconfig.CacheConfig
	CommandsConfig     = runtimeconfig.CommandsConfig
	Features           = runtimeconfig.Features
	LoggingConfig      = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
