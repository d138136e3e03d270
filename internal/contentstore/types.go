package contentstore

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/identity"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

var (
	ErrDocumentExists   = errors.New("contentstore: document already exists")
	ErrDocumentMissing  = errors.New("contentstore: document not found")
	ErrRevisionConflict = errors.New("contentstore: document revision changed")
	ErrMissingID        = errors.New("contentstore: document has no id")
)

// DocumentRecord is the persisted row form of one content document. The
// caller-visible identifier lives in DocID; the surrogate primary key is
// derived deterministically from it. Body holds only caller-owned content;
// reserved fields are projected from the row's own columns.
type DocumentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID        uuid.UUID      `bun:",pk,type:uuid"                json:"id"`
	DocID     string         `bun:"doc_id,notnull,unique"        json:"doc_id"`
	Type      string         `bun:"type,notnull"                 json:"type"`
	Revision  string         `bun:"revision,notnull"             json:"revision"`
	Body      map[string]any `bun:"body,type:jsonb,notnull"      json:"body"`
	CreatedAt time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// NewRevision mints an opaque per-write revision token.
func NewRevision() string {
	return uuid.NewString()
}

// FromDocument splits a document into its row form. Reserved fields move to
// columns; everything else stays in the body.
func FromDocument(doc interfaces.Document) (*DocumentRecord, error) {
	id, _ := doc[document.IDField].(string)
	if id == "" {
		return nil, ErrMissingID
	}
	docType, _ := doc[document.TypeField].(string)
	revision, _ := doc[document.RevisionField].(string)

	body := make(map[string]any, len(doc))
	for k, v := range doc {
		switch k {
		case document.IDField, document.TypeField, document.RevisionField,
			document.CreatedAtField, document.UpdatedAtField:
			continue
		}
		body[k] = document.Clone(v)
	}
	return &DocumentRecord{
		ID:       identity.DocumentRecordUUID(id),
		DocID:    id,
		Type:     docType,
		Revision: revision,
		Body:     body,
	}, nil
}

// ToDocument projects a row back into document shape.
func (r *DocumentRecord) ToDocument() interfaces.Document {
	doc := document.Clone(r.Body)
	if doc == nil {
		doc = interfaces.Document{}
	}
	doc[document.IDField] = r.DocID
	if r.Type != "" {
		doc[document.TypeField] = r.Type
	}
	doc[document.RevisionField] = r.Revision
	if !r.CreatedAt.IsZero() {
		doc[document.CreatedAtField] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !r.UpdatedAt.IsZero() {
		doc[document.UpdatedAtField] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return doc
}

// matchesQuery applies a query's filters to a composed document. Filter keys
// use dotted notation relative to the document root.
func matchesQuery(doc interfaces.Document, query interfaces.Query) bool {
	if query.Type != "" {
		if docType, _ := doc[document.TypeField].(string); docType != query.Type {
			return false
		}
	}
	for field, want := range query.Where {
		got, ok := lookupDotted(doc, field)
		if !ok || !document.Equal(got, want) {
			return false
		}
	}
	return true
}

func lookupDotted(doc interfaces.Document, field string) (any, bool) {
	var current any = map[string]any(doc)
	start := 0
	for i := 0; i <= len(field); i++ {
		if i != len(field) && field[i] != '.' {
			continue
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[field[start:i]]
		if !ok {
			return nil, false
		}
		start = i + 1
	}
	return current, true
}
