package translationconfig

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ErrDatabaseRequired is returned when a BunRepository is used without a
// database handle.
var ErrDatabaseRequired = errors.New("translationconfig: bun repository requires a database")

// The settings table is a single-row table; settingsRowID is that row.
const settingsRowID = 1

// BunRepository persists settings in a bun-managed table and mirrors the
// MemoryRepository's change notifications.
type BunRepository struct {
	db  *bun.DB
	hub *watcherHub
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db, hub: newWatcherHub()}
}

// Migrate creates the settings table when missing.
func (r *BunRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return ErrDatabaseRequired
	}
	_, err := r.db.NewCreateTable().
		Model((*settingsRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *BunRepository) Get(ctx context.Context) (Settings, error) {
	if r.db == nil {
		return Settings{}, ErrDatabaseRequired
	}
	row := settingsRow{}
	err := r.db.NewSelect().Model(&row).Where("id = ?", settingsRowID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrSettingsNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	return row.settings(), nil
}

func (r *BunRepository) Upsert(ctx context.Context, settings Settings) (Settings, error) {
	if r.db == nil {
		return Settings{}, ErrDatabaseRequired
	}
	_, getErr := r.Get(ctx)
	created := errors.Is(getErr, ErrSettingsNotFound)
	if getErr != nil && !created {
		return Settings{}, getErr
	}

	row := rowFromSettings(settings)
	row.ID = settingsRowID
	row.UpdatedAt = time.Now().UTC()
	_, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("default_template_id = EXCLUDED.default_template_id").
		Set("due_date_lead_days = EXCLUDED.due_date_lead_days").
		Set("translatable_types = EXCLUDED.translatable_types").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return Settings{}, err
	}

	kind := ChangeUpdated
	if created {
		kind = ChangeCreated
	}
	r.hub.publish(newChangeEvent(kind, settings))
	return settings, nil
}

func (r *BunRepository) Delete(ctx context.Context) error {
	if r.db == nil {
		return ErrDatabaseRequired
	}
	result, err := r.db.NewDelete().
		Model((*settingsRow)(nil)).
		Where("id = ?", settingsRowID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrSettingsNotFound
	}
	r.hub.publish(newChangeEvent(ChangeDeleted, Settings{}))
	return nil
}

func (r *BunRepository) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	return r.hub.watch(ctx), nil
}

type settingsRow struct {
	bun.BaseModel `bun:"table:tms_settings"`

	ID                int       `bun:",pk"`
	Enabled           bool      `bun:"enabled"`
	DefaultTemplateID string    `bun:"default_template_id"`
	DueDateLeadDays   int       `bun:"due_date_lead_days"`
	TranslatableTypes string    `bun:"translatable_types"`
	UpdatedAt         time.Time `bun:"updated_at"`
}

func rowFromSettings(settings Settings) settingsRow {
	return settingsRow{
		Enabled:           settings.Enabled,
		DefaultTemplateID: settings.DefaultTemplateID,
		DueDateLeadDays:   settings.DueDateLeadDays,
		TranslatableTypes: strings.Join(settings.TranslatableTypes, ","),
	}
}

func (row settingsRow) settings() Settings {
	out := Settings{
		Enabled:           row.Enabled,
		DefaultTemplateID: row.DefaultTemplateID,
		DueDateLeadDays:   row.DueDateLeadDays,
	}
	if row.TranslatableTypes != "" {
		out.TranslatableTypes = strings.Split(row.TranslatableTypes, ",")
	}
	return out
}
