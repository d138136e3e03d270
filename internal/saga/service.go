package saga

import (
	"time"

	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

const defaultRefreshConcurrency = 3

// Service orchestrates the translation creation and refresh sagas. All
// cross-invocation coordination goes through the content repository's
// transaction and revision primitives; the service itself is stateless and
// safe for concurrent use.
type Service struct {
	repo        interfaces.ContentRepository
	vendor      interfaces.VendorClient
	adapter     interfaces.DocumentAdapter
	store       *translation.Store
	credentials interfaces.VendorCredentials

	retry        RetryPolicy
	refreshLimit int
	logger       interfaces.Logger
	clock        func() time.Time
}

// Option mutates the service configuration.
type Option func(*Service)

// WithRetryPolicy overrides the shared bounded-backoff policy for steps that
// reach external systems.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *Service) {
		s.retry = policy
	}
}

// WithRefreshConcurrency bounds concurrent vendor downloads during refresh.
func WithRefreshConcurrency(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.refreshLimit = limit
		}
	}
}

// WithLogger attaches the saga logger namespace.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for lifecycle timestamps (primarily for
// testing).
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCredentials supplies the vendor authentication material.
func WithCredentials(creds interfaces.VendorCredentials) Option {
	return func(s *Service) {
		s.credentials = creds
	}
}

// NewService wires the saga orchestrator. The translation store is derived
// from the repository so metadata writes and content writes share
// transactions.
func NewService(repo interfaces.ContentRepository, vendor interfaces.VendorClient, adapter interfaces.DocumentAdapter, opts ...Option) *Service {
	svc := &Service{
		repo:         repo,
		vendor:       vendor,
		adapter:      adapter,
		retry:        DefaultRetryPolicy(),
		refreshLimit: defaultRefreshConcurrency,
		logger:       logging.NoOp(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.store = translation.NewStore(repo, svc.clock)
	return svc
}

// Store exposes the metadata store backing the service.
func (s *Service) Store() *translation.Store {
	return s.store
}

func (s *Service) opLogger(operation, key string) interfaces.Logger {
	return logging.WithFields(s.logger, map[string]any{
		"operation":       operation,
		"translation_key": key,
	})
}
