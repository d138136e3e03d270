package translatecmd

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-tms/internal/commands"
	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/internal/saga"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

const (
	requestMessageType = "tms.translations.request"
	refreshMessageType = "tms.translations.refresh"
	commitMessageType  = "tms.translations.commit"
	eventMessageType   = "tms.translations.vendor_event"
)

// RequestTranslationCommand starts the creation saga for a source document.
type RequestTranslationCommand struct {
	SourceID        string          `json:"source_id"`
	SourceType      string          `json:"source_type"`
	SourceLanguage  string          `json:"source_language"`
	SourceRevision  string          `json:"source_revision"`
	Paths           []document.Path `json:"paths"`
	TargetLanguages []string        `json:"target_languages"`
	TemplateID      string          `json:"template_id"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
}

// Type implements command.Message.
func (RequestTranslationCommand) Type() string { return requestMessageType }

// Validate ensures the command captures the required identifiers before reaching handlers.
func (m RequestTranslationCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.SourceID) == "" {
		errs["source_id"] = validation.NewError("tms.translations.request.source_id_required", "source_id is required")
	}
	if strings.TrimSpace(m.SourceRevision) == "" {
		errs["source_revision"] = validation.NewError("tms.translations.request.source_revision_required", "source_revision is required")
	}
	if len(m.Paths) == 0 {
		errs["paths"] = validation.NewError("tms.translations.request.paths_required", "at least one path scope is required")
	}
	if len(m.TargetLanguages) == 0 {
		errs["target_languages"] = validation.NewError("tms.translations.request.target_languages_required", "at least one target language is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Request converts the command into the saga's request form.
func (m RequestTranslationCommand) Request() translation.Request {
	return translation.Request{
		Source: translation.DocumentRef{
			ID:       m.SourceID,
			Type:     m.SourceType,
			Language: m.SourceLanguage,
			Revision: m.SourceRevision,
		},
		Paths:           m.Paths,
		TargetLanguages: m.TargetLanguages,
		TemplateID:      m.TemplateID,
		DueDate:         m.DueDate,
	}
}

// RefreshTranslationsCommand pulls vendor content for one record, or for every
// active record of a source document when only SourceID is set.
type RefreshTranslationsCommand struct {
	TranslationKey string `json:"translation_key,omitempty"`
	SourceID       string `json:"source_id,omitempty"`
}

// Type implements command.Message.
func (RefreshTranslationsCommand) Type() string { return refreshMessageType }

// Validate requires exactly one addressing mode.
func (m RefreshTranslationsCommand) Validate() error {
	key := strings.TrimSpace(m.TranslationKey)
	source := strings.TrimSpace(m.SourceID)
	if key == "" && source == "" {
		return validation.Errors{
			"translation_key": validation.NewError("tms.translations.refresh.subject_required", "translation_key or source_id is required"),
		}
	}
	if key != "" && source != "" {
		return validation.Errors{
			"translation_key": validation.NewError("tms.translations.refresh.subject_ambiguous", "translation_key and source_id are mutually exclusive"),
		}
	}
	return nil
}

// CommitTranslationCommand merges a completed record into its target documents.
type CommitTranslationCommand struct {
	TranslationKey string `json:"translation_key"`
}

// Type implements command.Message.
func (CommitTranslationCommand) Type() string { return commitMessageType }

// Validate ensures the record is addressed.
func (m CommitTranslationCommand) Validate() error {
	if strings.TrimSpace(m.TranslationKey) == "" {
		return validation.Errors{
			"translation_key": validation.NewError("tms.translations.commit.key_required", "translation_key is required"),
		}
	}
	return nil
}

// VendorEventCommand carries a normalized vendor webhook notification.
type VendorEventCommand struct {
	Kind           saga.EventKind `json:"kind"`
	TranslationKey string         `json:"translation_key"`
	ProjectID      string         `json:"project_id,omitempty"`
	JobID          string         `json:"job_id,omitempty"`
	Status         string         `json:"status,omitempty"`
	WorkflowLevel  int            `json:"workflow_level,omitempty"`
	WorkflowStep   string         `json:"workflow_step,omitempty"`
}

// Type implements command.Message.
func (VendorEventCommand) Type() string { return eventMessageType }

// Validate ensures the event targets a record. The kind is deliberately not
// validated; unknown kinds are a no-op downstream.
func (m VendorEventCommand) Validate() error {
	if strings.TrimSpace(m.TranslationKey) == "" {
		return validation.Errors{
			"translation_key": validation.NewError("tms.translations.vendor_event.key_required", "translation_key is required"),
		}
	}
	return nil
}

// Event converts the command into the saga's event form.
func (m VendorEventCommand) Event() saga.Event {
	return saga.Event{
		Kind:           m.Kind,
		TranslationKey: m.TranslationKey,
		ProjectID:      m.ProjectID,
		JobID:          m.JobID,
		Status:         m.Status,
		WorkflowLevel:  m.WorkflowLevel,
		WorkflowStep:   m.WorkflowStep,
	}
}

// RequestTranslationHandler drives the creation saga from command messages.
type RequestTranslationHandler struct {
	inner *commands.Handler[RequestTranslationCommand]
}

// NewRequestTranslationHandler constructs a handler wired to the saga service.
func NewRequestTranslationHandler(service *saga.Service, logger interfaces.Logger, opts ...commands.HandlerOption[RequestTranslationCommand]) *RequestTranslationHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg RequestTranslationCommand) error {
		_, err := service.Create(ctx, msg.Request())
		return err
	}

	handlerOpts := []commands.HandlerOption[RequestTranslationCommand]{
		commands.WithLogger[RequestTranslationCommand](baseLogger),
		commands.WithOperation[RequestTranslationCommand]("translations.request"),
		commands.WithMessageFields(func(msg RequestTranslationCommand) map[string]any {
			return map[string]any{
				"source_id": msg.SourceID,
				"languages": strings.Join(msg.TargetLanguages, ","),
			}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[RequestTranslationCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &RequestTranslationHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute conforms to command.Commander.
func (h *RequestTranslationHandler) Execute(ctx context.Context, msg RequestTranslationCommand) error {
	return h.inner.Execute(ctx, msg)
}

// RefreshTranslationsHandler drives the refresh saga from command messages.
type RefreshTranslationsHandler struct {
	inner *commands.Handler[RefreshTranslationsCommand]
}

// NewRefreshTranslationsHandler constructs a handler wired to the saga service.
func NewRefreshTranslationsHandler(service *saga.Service, logger interfaces.Logger, opts ...commands.HandlerOption[RefreshTranslationsCommand]) *RefreshTranslationsHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg RefreshTranslationsCommand) error {
		if key := strings.TrimSpace(msg.TranslationKey); key != "" {
			_, err := service.Refresh(ctx, key)
			return err
		}
		_, err := service.RefreshSource(ctx, strings.TrimSpace(msg.SourceID))
		return err
	}

	handlerOpts := []commands.HandlerOption[RefreshTranslationsCommand]{
		commands.WithLogger[RefreshTranslationsCommand](baseLogger),
		commands.WithOperation[RefreshTranslationsCommand]("translations.refresh"),
		commands.WithMessageFields(func(msg RefreshTranslationsCommand) map[string]any {
			fields := map[string]any{}
			if msg.TranslationKey != "" {
				fields["translation_key"] = msg.TranslationKey
			}
			if msg.SourceID != "" {
				fields["source_id"] = msg.SourceID
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[RefreshTranslationsCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &RefreshTranslationsHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute conforms to command.Commander.
func (h *RefreshTranslationsHandler) Execute(ctx context.Context, msg RefreshTranslationsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CommitTranslationHandler merges completed translations via the saga service.
type CommitTranslationHandler struct {
	inner *commands.Handler[CommitTranslationCommand]
}

// NewCommitTranslationHandler constructs a handler wired to the saga service.
func NewCommitTranslationHandler(service *saga.Service, logger interfaces.Logger, opts ...commands.HandlerOption[CommitTranslationCommand]) *CommitTranslationHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg CommitTranslationCommand) error {
		_, err := service.Commit(ctx, strings.TrimSpace(msg.TranslationKey))
		return err
	}

	handlerOpts := []commands.HandlerOption[CommitTranslationCommand]{
		commands.WithLogger[CommitTranslationCommand](baseLogger),
		commands.WithOperation[CommitTranslationCommand]("translations.commit"),
		commands.WithMessageFields(func(msg CommitTranslationCommand) map[string]any {
			return map[string]any{"translation_key": msg.TranslationKey}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[CommitTranslationCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CommitTranslationHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute conforms to command.Commander.
func (h *CommitTranslationHandler) Execute(ctx context.Context, msg CommitTranslationCommand) error {
	return h.inner.Execute(ctx, msg)
}

// VendorEventHandler applies vendor webhook notifications via the saga service.
type VendorEventHandler struct {
	inner *commands.Handler[VendorEventCommand]
}

// NewVendorEventHandler constructs a handler wired to the saga service.
func NewVendorEventHandler(service *saga.Service, logger interfaces.Logger, opts ...commands.HandlerOption[VendorEventCommand]) *VendorEventHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg VendorEventCommand) error {
		_, err := service.HandleEvent(ctx, msg.Event())
		return err
	}

	handlerOpts := []commands.HandlerOption[VendorEventCommand]{
		commands.WithLogger[VendorEventCommand](baseLogger),
		commands.WithOperation[VendorEventCommand]("translations.vendor_event"),
		commands.WithMessageFields(func(msg VendorEventCommand) map[string]any {
			return map[string]any{
				"translation_key": msg.TranslationKey,
				"event_kind":      string(msg.Kind),
			}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[VendorEventCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &VendorEventHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute conforms to command.Commander.
func (h *VendorEventHandler) Execute(ctx context.Context, msg VendorEventCommand) error {
	return h.inner.Execute(ctx, msg)
}

// Logger returns the module-scoped command logger for translation commands.
func Logger(provider interfaces.LoggerProvider) interfaces.Logger {
	if provider == nil {
		return logging.NoOp()
	}
	return commands.CommandLogger(provider, "translations")
}
