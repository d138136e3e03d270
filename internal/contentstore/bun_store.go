package contentstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// NewDocumentRepository builds the generic read-side repository over the
// document table, keyed by the surrogate uuid and identified by doc_id.
func NewDocumentRepository(db *bun.DB) repository.Repository[*DocumentRecord] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*DocumentRecord]{
		NewRecord: func() *DocumentRecord { return &DocumentRecord{} },
		GetID: func(r *DocumentRecord) uuid.UUID {
			return r.ID
		},
		SetID: func(r *DocumentRecord, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "doc_id"
		},
		GetIdentifierValue: func(r *DocumentRecord) string {
			return r.DocID
		},
	})
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}

// BunStore is the bun-backed ContentRepository. Reads go through the generic
// repository (optionally cache-wrapped); transactional writes run inside one
// database transaction so the batch commits or fails as a unit.
type BunStore struct {
	db   *bun.DB
	repo repository.Repository[*DocumentRecord]
}

// NewBunStore builds a store without read caching.
func NewBunStore(db *bun.DB) *BunStore {
	return NewBunStoreWithCache(db, nil, nil)
}

// NewBunStoreWithCache builds a store whose reads go through the cache layer.
func NewBunStoreWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunStore {
	base := NewDocumentRepository(db)
	return &BunStore{
		db:   db,
		repo: wrapWithCache(base, cacheService, keySerializer),
	}
}

// OpenSQLite opens an embedded sqlite-backed store. The dsn
// "file::memory:?cache=shared" yields an in-memory database.
func OpenSQLite(dsn string) (*BunStore, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	return NewBunStore(bun.NewDB(sqldb, sqlitedialect.New())), nil
}

// NewPostgresStore wraps an already-open Postgres connection.
func NewPostgresStore(sqldb *sql.DB) *BunStore {
	return NewBunStore(bun.NewDB(sqldb, pgdialect.New()))
}

// Migrate creates the document table.
func (s *BunStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*DocumentRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *BunStore) FetchByIDs(ctx context.Context, ids []string) ([]interfaces.Document, error) {
	out := make([]interfaces.Document, 0, len(ids))
	for _, id := range ids {
		record, err := s.repo.GetByIdentifier(ctx, id)
		if err != nil {
			if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
				continue
			}
			return nil, fmt.Errorf("document repository error: %w", err)
		}
		out = append(out, record.ToDocument())
	}
	return out, nil
}

func (s *BunStore) FetchByQuery(ctx context.Context, query interfaces.Query) ([]interfaces.Document, error) {
	var records []*DocumentRecord
	q := s.db.NewSelect().Model(&records).Order("doc_id ASC")
	if query.Type != "" {
		q = q.Where("type = ?", query.Type)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("document repository error: %w", err)
	}

	// Dotted-path filters are applied on the composed document so the query
	// semantics stay identical across dialects.
	var out []interfaces.Document
	for _, record := range records {
		doc := record.ToDocument()
		if matchesQuery(doc, query) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *BunStore) Transaction() interfaces.Transaction {
	return &bunTx{store: s}
}

type bunTx struct {
	store *BunStore
	ops   []txOp
}

func (t *bunTx) Create(doc interfaces.Document) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txCreate, doc: document.Clone(doc)})
	return t
}

func (t *bunTx) CreateOrReplace(doc interfaces.Document) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txCreateOrReplace, doc: document.Clone(doc)})
	return t
}

func (t *bunTx) Patch(id string, spec interfaces.PatchSpec) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txPatch, id: id, spec: spec})
	return t
}

func (t *bunTx) Delete(id string) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txDelete, id: id})
	return t
}

func (t *bunTx) Commit(ctx context.Context) error {
	return t.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, op := range t.ops {
			if err := applyOp(ctx, tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOp(ctx context.Context, tx bun.Tx, op txOp) error {
	switch op.kind {
	case txCreate, txCreateOrReplace:
		record, err := FromDocument(op.doc)
		if err != nil {
			return err
		}
		existing, err := fetchForUpdate(ctx, tx, record.DocID)
		if err != nil {
			return err
		}
		if existing != nil && op.kind == txCreate {
			return fmt.Errorf("%w: %s", ErrDocumentExists, record.DocID)
		}
		record.Revision = NewRevision()
		if existing != nil {
			record.CreatedAt = existing.CreatedAt
			record.UpdatedAt = time.Now()
			_, err = tx.NewUpdate().
				Model(record).
				WherePK().
				Exec(ctx)
			return err
		}
		_, err = tx.NewInsert().Model(record).Exec(ctx)
		return err

	case txPatch:
		existing, err := fetchForUpdate(ctx, tx, op.id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrDocumentMissing, op.id)
		}
		if op.spec.IfRevision != "" && op.spec.IfRevision != existing.Revision {
			return fmt.Errorf("%w: %s", ErrRevisionConflict, op.id)
		}
		next, err := op.spec.Mutate(existing.ToDocument())
		if err != nil {
			return err
		}
		next[document.IDField] = op.id
		record, err := FromDocument(next)
		if err != nil {
			return err
		}
		record.Revision = NewRevision()
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = time.Now()
		// Guard against a writer that slipped in between the read and this
		// update; zero affected rows means the revision moved.
		res, err := tx.NewUpdate().
			Model(record).
			WherePK().
			Where("revision = ?", existing.Revision).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: %s", ErrRevisionConflict, op.id)
		}
		return nil

	case txDelete:
		_, err := tx.NewDelete().
			Model((*DocumentRecord)(nil)).
			Where("doc_id = ?", op.id).
			Exec(ctx)
		return err
	}
	return nil
}

func fetchForUpdate(ctx context.Context, tx bun.Tx, docID string) (*DocumentRecord, error) {
	record := new(DocumentRecord)
	err := tx.NewSelect().
		Model(record).
		Where("doc_id = ?", docID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
