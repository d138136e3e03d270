package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tms/internal/commands"
	translatecmd "github.com/goliatone/go-tms/internal/commands/translate"
	"github.com/goliatone/go-tms/internal/contentstore"
	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/internal/logging/gologger"
	"github.com/goliatone/go-tms/internal/runtimeconfig"
	"github.com/goliatone/go-tms/internal/saga"
	"github.com/goliatone/go-tms/internal/staleness"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/internal/translationconfig"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// CommandDispatcher subscribes command handlers to a dispatcher
// implementation supplied by the host.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

var ErrVendorClientRequired = errors.New("tms: a vendor client binding is required")
var ErrDocumentAdapterRequired = errors.New("tms: a document adapter binding is required")
var ErrBunDBRequired = errors.New("tms: the bun storage provider requires a database binding")

// Container wires module dependencies from configuration plus host-supplied
// bindings.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	bunDB          *bun.DB
	cacheService   repocache.CacheService
	keySerializer  repocache.KeySerializer

	repo        interfaces.ContentRepository
	vendor      interfaces.VendorClient
	adapter     interfaces.DocumentAdapter
	credentials interfaces.VendorCredentials
	clock       func() time.Time

	settingsRepo  translationconfig.Repository
	settingsState *translationconfig.State

	sagaSvc    *saga.Service
	classifier *staleness.Classifier

	requestHandler *translatecmd.RequestTranslationHandler
	refreshHandler *translatecmd.RefreshTranslationsHandler
	commitHandler  *translatecmd.CommitTranslationHandler
	eventHandler   *translatecmd.VendorEventHandler

	dispatcher    CommandDispatcher
	cancelWatch   context.CancelFunc
	subscriptions []CommandSubscription
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the logger provider derived from configuration.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithBunDB supplies the database used by the bun storage provider.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache supplies the read-cache bindings for the bun storage provider.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithContentRepository overrides the content repository binding entirely.
func WithContentRepository(repo interfaces.ContentRepository) Option {
	return func(c *Container) {
		c.repo = repo
	}
}

// WithVendorClient supplies the translation vendor binding. Required.
func WithVendorClient(client interfaces.VendorClient) Option {
	return func(c *Container) {
		c.vendor = client
	}
}

// WithDocumentAdapter supplies the host document-shape adapter. Required.
func WithDocumentAdapter(adapter interfaces.DocumentAdapter) Option {
	return func(c *Container) {
		c.adapter = adapter
	}
}

// WithCredentials supplies the vendor authentication material.
func WithCredentials(creds interfaces.VendorCredentials) Option {
	return func(c *Container) {
		c.credentials = creds
	}
}

// WithClock overrides the clock used for lifecycle timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCommandDispatcher supplies the dispatcher used when command handlers
// are auto-registered.
func WithCommandDispatcher(d CommandDispatcher) Option {
	return func(c *Container) {
		c.dispatcher = d
	}
}

// WithSettingsRepository overrides the translation settings repository.
func WithSettingsRepository(repo translationconfig.Repository) Option {
	return func(c *Container) {
		c.settingsRepo = repo
	}
}

// NewContainer creates a container with the provided configuration.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.vendor == nil {
		return nil, ErrVendorClientRequired
	}
	if c.adapter == nil {
		return nil, ErrDocumentAdapterRequired
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	if err := c.configureStorage(); err != nil {
		return nil, err
	}
	if err := c.configureSettings(); err != nil {
		return nil, err
	}

	c.sagaSvc = saga.NewService(c.repo, c.vendor, c.adapter,
		saga.WithRetryPolicy(saga.RetryPolicy{
			Attempts:    cfg.Retry.Attempts,
			BaseBackoff: cfg.Retry.BaseBackoff,
			MaxBackoff:  cfg.Retry.MaxBackoff,
		}),
		saga.WithRefreshConcurrency(cfg.Refresh.Concurrency),
		saga.WithLogger(logging.SagaLogger(c.loggerProvider)),
		saga.WithCredentials(c.credentials),
		saga.WithClock(c.clock),
	)

	c.classifier = staleness.NewClassifier(
		c.sagaSvc.Store(),
		c.settingsState.Snapshot().TranslatableTypes,
		logging.StalenessLogger(c.loggerProvider),
	)

	if cfg.Commands.Enabled {
		if err := c.configureCommands(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}
	if c.Config.Logging.Provider != "gologger" {
		return nil
	}
	provider, err := gologger.NewProvider(gologger.Config{
		Level:     c.Config.Logging.Level,
		Format:    c.Config.Logging.Format,
		AddSource: c.Config.Logging.AddSource,
		Focus:     c.Config.Logging.Focus,
	})
	if err != nil {
		return fmt.Errorf("tms: building logger provider: %w", err)
	}
	c.loggerProvider = provider
	return nil
}

func (c *Container) configureStorage() error {
	if c.repo != nil {
		return nil
	}
	switch c.Config.Storage.Provider {
	case "", "memory":
		c.repo = contentstore.NewMemory(contentstore.WithMemoryClock(c.clock))
	case "sqlite":
		store, err := contentstore.OpenSQLite(c.Config.Storage.SQLiteDSN)
		if err != nil {
			return fmt.Errorf("tms: opening sqlite store: %w", err)
		}
		if err := store.Migrate(context.Background()); err != nil {
			return fmt.Errorf("tms: migrating sqlite store: %w", err)
		}
		c.repo = store
	case "bun":
		if c.bunDB == nil {
			return ErrBunDBRequired
		}
		if c.Config.Features.Cache && c.Config.Cache.Enabled {
			c.repo = contentstore.NewBunStoreWithCache(c.bunDB, c.cacheService, c.keySerializer)
		} else {
			c.repo = contentstore.NewBunStore(c.bunDB)
		}
	}
	return nil
}

// configureSettings loads persisted translation settings, seeding them from
// configuration on first use, and keeps the shared state current as the
// repository reports changes.
func (c *Container) configureSettings() error {
	if c.settingsRepo == nil {
		c.settingsRepo = translationconfig.NewMemoryRepository()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelWatch = cancel

	settings, err := c.settingsRepo.Get(ctx)
	if errors.Is(err, translationconfig.ErrSettingsNotFound) {
		settings = translationconfig.Settings{
			Enabled:           c.Config.Enabled,
			DefaultTemplateID: c.Config.Vendor.DefaultTemplateID,
			DueDateLeadDays:   int(c.Config.Vendor.DueDateLead / (24 * time.Hour)),
			TranslatableTypes: c.Config.Translations.TranslatableTypes,
		}
		if settings, err = c.settingsRepo.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("tms: seeding translation settings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("tms: loading translation settings: %w", err)
	}
	c.settingsState = translationconfig.NewState(settings)

	events, err := c.settingsRepo.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("tms: subscribing to translation settings: %w", err)
	}
	go func() {
		for event := range events {
			c.settingsState.Apply(event.Settings)
		}
	}()
	return nil
}

func (c *Container) configureCommands() error {
	logger := commands.CommandLogger(c.loggerProvider, "translations")
	c.requestHandler = translatecmd.NewRequestTranslationHandler(c.sagaSvc, logger)
	c.refreshHandler = translatecmd.NewRefreshTranslationsHandler(c.sagaSvc, logger)
	c.commitHandler = translatecmd.NewCommitTranslationHandler(c.sagaSvc, logger)
	c.eventHandler = translatecmd.NewVendorEventHandler(c.sagaSvc, logger)

	if !c.Config.Commands.AutoRegisterDispatcher || c.dispatcher == nil {
		return nil
	}
	for _, handler := range []any{c.requestHandler, c.refreshHandler, c.commitHandler, c.eventHandler} {
		sub, err := c.dispatcher.RegisterCommand(handler)
		if err != nil {
			return fmt.Errorf("tms: registering command handler: %w", err)
		}
		if sub != nil {
			c.subscriptions = append(c.subscriptions, sub)
		}
	}
	return nil
}

// Close releases the settings watcher and any dispatcher subscriptions.
func (c *Container) Close() {
	if c.cancelWatch != nil {
		c.cancelWatch()
	}
	for _, sub := range c.subscriptions {
		sub.Unsubscribe()
	}
	c.subscriptions = nil
}

// Saga exposes the saga orchestration service.
func (c *Container) Saga() *saga.Service {
	return c.sagaSvc
}

// Classifier exposes the staleness classifier.
func (c *Container) Classifier() *staleness.Classifier {
	return c.classifier
}

// Repository exposes the configured content repository.
func (c *Container) Repository() interfaces.ContentRepository {
	return c.repo
}

// Store exposes the translation metadata store.
func (c *Container) Store() *translation.Store {
	if c.sagaSvc == nil {
		return nil
	}
	return c.sagaSvc.Store()
}

// SettingsState exposes the live translation settings view.
func (c *Container) SettingsState() *translationconfig.State {
	return c.settingsState
}

// SettingsRepository exposes the translation settings repository.
func (c *Container) SettingsRepository() translationconfig.Repository {
	return c.settingsRepo
}

// LoggerProvider exposes the configured logger provider, possibly nil.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// RequestHandler exposes the translation request command handler.
func (c *Container) RequestHandler() *translatecmd.RequestTranslationHandler {
	return c.requestHandler
}

// RefreshHandler exposes the translation refresh command handler.
func (c *Container) RefreshHandler() *translatecmd.RefreshTranslationsHandler {
	return c.refreshHandler
}

// CommitHandler exposes the translation commit command handler.
func (c *Container) CommitHandler() *translatecmd.CommitTranslationHandler {
	return c.commitHandler
}

// EventHandler exposes the vendor event command handler.
func (c *Container) EventHandler() *translatecmd.VendorEventHandler {
	return c.eventHandler
}
