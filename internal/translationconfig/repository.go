package translationconfig

import (
	"context"
	"errors"
	"slices"
)

// ErrSettingsNotFound reports that no settings row has been written yet.
var ErrSettingsNotFound = errors.New("translationconfig: settings not found")

// Settings are the runtime toggles and request defaults of the translation
// pipeline. A zero DueDateLeadDays or empty DefaultTemplateID means requests
// must carry their own; an empty TranslatableTypes admits every type.
type Settings struct {
	Enabled           bool
	DefaultTemplateID string
	DueDateLeadDays   int
	TranslatableTypes []string
}

// Repository persists settings and notifies watchers of changes.
type Repository interface {
	Get(ctx context.Context) (Settings, error)
	Upsert(ctx context.Context, settings Settings) (Settings, error)
	Delete(ctx context.Context) error
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
}

// ChangeType names a settings mutation.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is delivered to subscribers after a mutation lands.
type ChangeEvent struct {
	Type     ChangeType
	Settings Settings
}

func newChangeEvent(kind ChangeType, settings Settings) ChangeEvent {
	return ChangeEvent{Type: kind, Settings: settings}
}

func equalSettings(a, b Settings) bool {
	return a.Enabled == b.Enabled &&
		a.DefaultTemplateID == b.DefaultTemplateID &&
		a.DueDateLeadDays == b.DueDateLeadDays &&
		slices.Equal(a.TranslatableTypes, b.TranslatableTypes)
}
