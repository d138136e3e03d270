package interfaces

import "context"

// Document is the tree-shaped content value exchanged with the content
// repository. Reserved fields (`_id`, `_type`, `_rev`, timestamps) are managed
// by the repository implementation; everything else is caller-owned content.
type Document = map[string]any

// Query selects documents by type plus optional field equality filters.
// Filter keys use dotted path notation relative to the document root.
type Query struct {
	Type  string
	Where map[string]any
}

// DocumentMutator transforms the current persisted state of a document into
// its next state. Implementations must not retain or mutate the input map.
type DocumentMutator func(doc Document) (Document, error)

// PatchSpec describes an in-transaction mutation of an existing document.
// IfRevision, when non-empty, makes the commit fail atomically unless the
// document's current revision matches.
type PatchSpec struct {
	IfRevision string
	Mutate     DocumentMutator
}

// Transaction stages document writes that are committed as one atomic unit.
// Builder methods return the transaction to allow chaining; staged operations
// are not visible to readers until Commit succeeds.
type Transaction interface {
	Create(doc Document) Transaction
	CreateOrReplace(doc Document) Transaction
	Patch(id string, spec PatchSpec) Transaction
	Delete(id string) Transaction
	Commit(ctx context.Context) error
}

// ContentRepository is the logical contract of the external content store.
// Implementations must provide per-document optimistic concurrency through
// revision tokens; the TMS never holds in-process locks across calls.
type ContentRepository interface {
	FetchByIDs(ctx context.Context, ids []string) ([]Document, error)
	FetchByQuery(ctx context.Context, query Query) ([]Document, error)
	Transaction() Transaction
}
