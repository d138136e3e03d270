package contentstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// Memory is an in-process ContentRepository with the same transactional and
// optimistic-concurrency semantics as the bun-backed store. Intended for
// tests and embedded examples.
type Memory struct {
	mu    sync.RWMutex
	rows  map[string]*DocumentRecord
	clock func() time.Time
}

// MemoryOption mutates the memory store configuration.
type MemoryOption func(*Memory)

// WithMemoryClock overrides the timestamp source.
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemory builds an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		rows:  make(map[string]*DocumentRecord),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed inserts documents directly, bypassing transaction semantics. Existing
// rows with the same id are replaced.
func (m *Memory) Seed(docs ...interfaces.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		record, err := FromDocument(doc)
		if err != nil {
			return err
		}
		if record.Revision == "" {
			record.Revision = NewRevision()
		}
		now := m.clock()
		record.CreatedAt = now
		record.UpdatedAt = now
		m.rows[record.DocID] = record
	}
	return nil
}

func (m *Memory) FetchByIDs(ctx context.Context, ids []string) ([]interfaces.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]interfaces.Document, 0, len(ids))
	for _, id := range ids {
		if record, ok := m.rows[id]; ok {
			out = append(out, record.ToDocument())
		}
	}
	return out, nil
}

func (m *Memory) FetchByQuery(ctx context.Context, query interfaces.Query) ([]interfaces.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []interfaces.Document
	for _, id := range ids {
		doc := m.rows[id].ToDocument()
		if matchesQuery(doc, query) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *Memory) Transaction() interfaces.Transaction {
	return &memoryTx{store: m}
}

type txOpKind int

const (
	txCreate txOpKind = iota
	txCreateOrReplace
	txPatch
	txDelete
)

type txOp struct {
	kind txOpKind
	doc  interfaces.Document
	id   string
	spec interfaces.PatchSpec
}

// memoryTx stages operations and applies them atomically under the store
// lock. Staged writes are invisible to readers until Commit succeeds; any
// failed operation aborts the whole batch.
type memoryTx struct {
	store *Memory
	ops   []txOp
}

func (t *memoryTx) Create(doc interfaces.Document) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txCreate, doc: document.Clone(doc)})
	return t
}

func (t *memoryTx) CreateOrReplace(doc interfaces.Document) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txCreateOrReplace, doc: document.Clone(doc)})
	return t
}

func (t *memoryTx) Patch(id string, spec interfaces.PatchSpec) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txPatch, id: id, spec: spec})
	return t
}

func (t *memoryTx) Delete(id string) interfaces.Transaction {
	t.ops = append(t.ops, txOp{kind: txDelete, id: id})
	return t
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	// Apply against a scratch view so a mid-batch failure leaves the store
	// untouched.
	scratch := make(map[string]*DocumentRecord, len(t.store.rows))
	for id, record := range t.store.rows {
		scratch[id] = record
	}
	now := t.store.clock()

	for _, op := range t.ops {
		switch op.kind {
		case txCreate, txCreateOrReplace:
			record, err := FromDocument(op.doc)
			if err != nil {
				return err
			}
			existing, exists := scratch[record.DocID]
			if exists && op.kind == txCreate {
				return fmt.Errorf("%w: %s", ErrDocumentExists, record.DocID)
			}
			record.Revision = NewRevision()
			record.CreatedAt = now
			record.UpdatedAt = now
			if exists {
				record.CreatedAt = existing.CreatedAt
			}
			scratch[record.DocID] = record

		case txPatch:
			existing, ok := scratch[op.id]
			if !ok {
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
			record.UpdatedAt = now
			scratch[op.id] = record

		case txDelete:
			delete(scratch, op.id)
		}
	}

	t.store.rows = scratch
	return nil
}
