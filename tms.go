// Package tms keeps source content documents and their per-language
// translated copies synchronized with an external translation vendor. It
// exposes a structural diff/patch engine, a compensated multi-step creation
// saga, a refresh/merge saga, and a staleness classifier over a pluggable
// content repository.
package tms

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-tms/internal/di"
	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/saga"
	"github.com/goliatone/go-tms/internal/staleness"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/internal/translationconfig"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// Document exports the tree-shaped content value handled by the module.
type Document = interfaces.Document

// Path exports the structural path addressing document subtrees.
type Path = document.Path

// Segment exports one step of a Path.
type Segment = document.Segment

// Path constructors re-exported for host convenience. ParsePath decodes the
// compact form produced by Path.String.
var (
	NewPath      = document.NewPath
	ParsePath    = document.ParsePath
	FieldSegment = document.Field
	IndexSegment = document.Index
	KeySegment   = document.Key
)

// DocumentRef exports the identity triple naming a document at a revision.
type DocumentRef = translation.DocumentRef

// JobRecord exports the persisted vendor job record.
type JobRecord = translation.JobRecord

// Salvage exports the vendor identifiers kept after a failed persistence.
type Salvage = translation.Salvage

// Request exports the translation request descriptor.
type Request = translation.Request

// Metadata exports the permanent record of one translation request group.
type Metadata = translation.Metadata

// Target exports one target-language record of a Metadata.
type Target = translation.Target

// Status exports the translation lifecycle status.
type Status = translation.Status

// Lifecycle statuses re-exported for host convenience.
const (
	StatusCreating         = translation.StatusCreating
	StatusNew              = translation.StatusNew
	StatusCompleted        = translation.StatusCompleted
	StatusCommitted        = translation.StatusCommitted
	StatusFailedPersisting = translation.StatusFailedPersisting
	StatusCancelled        = translation.StatusCancelled
	StatusDeleted          = translation.StatusDeleted
)

// Event exports the vendor notification applied through HandleVendorEvent.
type Event = saga.Event

// EventKind exports the closed set of vendor notification kinds.
type EventKind = saga.EventKind

// Vendor event kinds re-exported for host convenience.
const (
	EventJobProgressed    = saga.EventJobProgressed
	EventJobCompleted     = saga.EventJobCompleted
	EventJobCancelled     = saga.EventJobCancelled
	EventProjectCancelled = saga.EventProjectCancelled
	EventProjectDeleted   = saga.EventProjectDeleted
)

// StalenessResult exports one language's classification outcome.
type StalenessResult = staleness.Result

// StalenessStatus exports the classification status values.
type StalenessStatus = staleness.Status

// Classification statuses re-exported for host convenience.
const (
	StalenessUntranslatable = staleness.StatusUntranslatable
	StalenessUntranslated   = staleness.StatusUntranslated
	StalenessOngoing        = staleness.StatusOngoing
	StalenessFresh          = staleness.StatusFresh
	StalenessStale          = staleness.StatusStale
)

// Settings exports the runtime translation settings record.
type Settings = translationconfig.Settings

// Option exports the container binding options accepted by New.
type Option = di.Option

// Host binding options re-exported from the wiring layer.
var (
	WithVendorClient      = di.WithVendorClient
	WithDocumentAdapter   = di.WithDocumentAdapter
	WithContentRepository = di.WithContentRepository
	WithCredentials       = di.WithCredentials
	WithLoggerProvider    = di.WithLoggerProvider
	WithBunDB             = di.WithBunDB
	WithCache             = di.WithCache
	WithClock             = di.WithClock
	WithSettingsRepo      = di.WithSettingsRepository
	WithDispatcher        = di.WithCommandDispatcher
)

// Module is the top level TMS runtime facade.
type Module struct {
	container *di.Container
}

// New constructs a TMS module using the provided configuration and host
// bindings. A vendor client and a document adapter are required.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying wiring container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Close releases background watchers and dispatcher subscriptions.
func (m *Module) Close() {
	if m == nil || m.container == nil {
		return
	}
	m.container.Close()
}

// ErrTranslationsDisabled rejects new translation requests while the global
// enabled setting is off.
var ErrTranslationsDisabled = errors.New("translations are disabled")

// RequestTranslation runs the creation saga for a source document, returning
// the resulting metadata record. Requests are rejected while translations are
// disabled; records already in flight keep progressing through vendor events
// and refreshes so their billable jobs are not stranded.
func (m *Module) RequestTranslation(ctx context.Context, req Request) (*Metadata, error) {
	if !m.TranslationsEnabled() {
		return nil, goerrors.Wrap(ErrTranslationsDisabled, saga.CategoryPrecondition,
			"translation request rejected").WithTextCode("TRANSLATIONS_DISABLED")
	}
	req = m.applyDefaults(req)
	return m.container.Saga().Create(ctx, req)
}

// RetryPersist reruns local persistence for a record whose vendor project and
// jobs exist but whose earlier persistence failed.
func (m *Module) RetryPersist(ctx context.Context, translationKey string) (*Metadata, error) {
	return m.container.Saga().RetryPersist(ctx, translationKey)
}

// RefreshTranslation pulls vendor content for one record and merges it into
// the record's working documents.
func (m *Module) RefreshTranslation(ctx context.Context, translationKey string) (*Metadata, error) {
	return m.container.Saga().Refresh(ctx, translationKey)
}

// RefreshSource refreshes every active record of a source document.
func (m *Module) RefreshSource(ctx context.Context, sourceID string) ([]*Metadata, error) {
	return m.container.Saga().RefreshSource(ctx, sourceID)
}

// CommitTranslation merges a completed record into its target documents and
// marks it COMMITTED.
func (m *Module) CommitTranslation(ctx context.Context, translationKey string) (*Metadata, error) {
	return m.container.Saga().Commit(ctx, translationKey)
}

// HandleVendorEvent applies a vendor-observed notification to its record.
func (m *Module) HandleVendorEvent(ctx context.Context, event Event) (*Metadata, error) {
	return m.container.Saga().HandleEvent(ctx, event)
}

// Translation returns the metadata record for a translation key.
func (m *Module) Translation(ctx context.Context, translationKey string) (*Metadata, error) {
	return m.container.Store().Get(ctx, translationKey)
}

// TranslationsForSource lists the metadata records referencing a source
// document.
func (m *Module) TranslationsForSource(ctx context.Context, sourceID string) ([]*Metadata, error) {
	return m.container.Store().ForSource(ctx, sourceID)
}

// ClassifyStaleness reports, per target language, whether a source document's
// translations are current.
func (m *Module) ClassifyStaleness(ctx context.Context, source Document, languages []string) []StalenessResult {
	return m.container.Classifier().Classify(ctx, source, languages)
}

// TranslationsEnabled reports whether translations are globally enabled.
func (m *Module) TranslationsEnabled() bool {
	if m == nil || m.container == nil {
		return false
	}
	return m.container.SettingsState().Enabled()
}

// Settings returns a snapshot of the live translation settings.
func (m *Module) Settings() Settings {
	if m == nil || m.container == nil {
		return Settings{}
	}
	return m.container.SettingsState().Snapshot()
}

// UpdateSettings persists new translation settings and applies them to the
// live state.
func (m *Module) UpdateSettings(ctx context.Context, settings Settings) (Settings, error) {
	stored, err := m.container.SettingsRepository().Upsert(ctx, settings)
	if err != nil {
		return Settings{}, err
	}
	m.container.SettingsState().Apply(stored)
	return stored, nil
}

// applyDefaults fills request fields the host left empty from the live
// settings.
func (m *Module) applyDefaults(req Request) Request {
	state := m.container.SettingsState()
	if req.TemplateID == "" {
		req.TemplateID = state.DefaultTemplateID()
	}
	if req.DueDate == nil {
		if days := state.DueDateLeadDays(); days > 0 {
			due := time.Now().AddDate(0, 0, days)
			req.DueDate = &due
		}
	}
	return req
}
