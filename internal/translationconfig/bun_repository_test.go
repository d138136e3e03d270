package translationconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-tms/pkg/testsupport"
)

func newBunRepo(t *testing.T) *BunRepository {
	t.Helper()
	db := bun.NewDB(testsupport.MustSQLiteMemoryDB(t), sqlitedialect.New())
	repo := NewBunRepository(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestBunRepositoryLifecycle(t *testing.T) {
	repo := newBunRepo(t)
	ctx := context.Background()

	if _, err := repo.Get(ctx); !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("get before upsert: %v", err)
	}

	events, err := repo.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := repo.Upsert(ctx, sampleSettings()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	wantEvent(t, events, ChangeCreated)

	if _, err := repo.Upsert(ctx, Settings{Enabled: true, DefaultTemplateID: "template-b", DueDateLeadDays: 7}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	wantEvent(t, events, ChangeUpdated)

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DefaultTemplateID != "template-b" || got.DueDateLeadDays != 7 || len(got.TranslatableTypes) != 0 {
		t.Fatalf("stored settings = %+v", got)
	}

	if err := repo.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantEvent(t, events, ChangeDeleted)

	if _, err := repo.Get(ctx); !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestBunRepositoryDeleteMissing(t *testing.T) {
	repo := newBunRepo(t)
	if err := repo.Delete(context.Background()); !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("got %v, want ErrSettingsNotFound", err)
	}
}

func TestBunRepositoryRequiresDatabase(t *testing.T) {
	repo := NewBunRepository(nil)
	if _, err := repo.Get(context.Background()); !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("got %v, want ErrDatabaseRequired", err)
	}
}
