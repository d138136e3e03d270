package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/locks"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

const (
	metadataIDPrefix = "tms.translation."
	workingIDPrefix  = "tms.working."
)

// MetadataDocumentID names the repository document holding a metadata record.
func MetadataDocumentID(key string) string {
	return metadataIDPrefix + key
}

// WorkingDocumentID names the per-language working document of a translation.
// Working documents are keyed by vendor language code plus translation key.
func WorkingDocumentID(key, vendorLanguage string) string {
	return workingIDPrefix + vendorLanguage + "." + key
}

// EncodeMetadata renders a metadata record as a repository document.
func EncodeMetadata(md *Metadata) (interfaces.Document, error) {
	encoded, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata %q: %w", md.Key, err)
	}
	var doc interfaces.Document
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, fmt.Errorf("encoding metadata %q: %w", md.Key, err)
	}
	doc[document.IDField] = MetadataDocumentID(md.Key)
	doc[document.TypeField] = DocumentType
	return doc, nil
}

// DecodeMetadata parses a repository document back into a metadata record.
func DecodeMetadata(doc interfaces.Document) (*Metadata, error) {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataMalformed, err)
	}
	md := &Metadata{}
	if err := json.Unmarshal(encoded, md); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataMalformed, err)
	}
	if md.Key == "" {
		return nil, ErrMetadataMalformed
	}
	return md, nil
}

// Store persists metadata records as documents in the content repository.
// All cross-invocation coordination happens through the repository's
// transaction and revision primitives; the store holds no state of its own.
type Store struct {
	repo  interfaces.ContentRepository
	clock func() time.Time
}

// NewStore constructs a metadata store over the content repository.
func NewStore(repo interfaces.ContentRepository, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{repo: repo, clock: clock}
}

// Repository exposes the underlying content repository so sagas can compose
// multi-document transactions that include metadata writes.
func (s *Store) Repository() interfaces.ContentRepository {
	return s.repo
}

// Get fetches one metadata record by translation key.
func (s *Store) Get(ctx context.Context, key string) (*Metadata, error) {
	docs, err := s.repo.FetchByIDs(ctx, []string{MetadataDocumentID(key)})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 || docs[0] == nil {
		return nil, ErrNotFound
	}
	return DecodeMetadata(docs[0])
}

// ForSource lists every metadata record referencing the given source
// document, newest first not guaranteed; callers order by timestamps.
func (s *Store) ForSource(ctx context.Context, sourceID string) ([]*Metadata, error) {
	docs, err := s.repo.FetchByQuery(ctx, interfaces.Query{
		Type:  DocumentType,
		Where: map[string]any{"source.id": sourceID},
	})
	if err != nil {
		return nil, err
	}
	records := make([]*Metadata, 0, len(docs))
	for _, doc := range docs {
		md, err := DecodeMetadata(doc)
		if err == nil {
			records = append(records, md)
		}
	}
	return records, nil
}

// Create writes a new metadata record and stamps the matching history entry
// onto the source document in the same transaction. The record's existence is
// what locks the source document's path scope.
func (s *Store) Create(ctx context.Context, md *Metadata) error {
	now := s.clock()
	md.CreatedAt = now
	md.UpdatedAt = now
	doc, err := EncodeMetadata(md)
	if err != nil {
		return err
	}
	return s.repo.Transaction().
		Create(doc).
		Patch(md.Source.ID, interfaces.PatchSpec{
			Mutate: func(source interfaces.Document) (interfaces.Document, error) {
				return UpsertHistory(source, md.HistoryEntry()), nil
			},
		}).
		Commit(ctx)
}

// Delete removes the metadata record and the matching source history entry,
// releasing the lock. Used as the creation saga's compensation.
func (s *Store) Delete(ctx context.Context, md *Metadata) error {
	return s.repo.Transaction().
		Delete(MetadataDocumentID(md.Key)).
		Patch(md.Source.ID, interfaces.PatchSpec{
			Mutate: func(source interfaces.Document) (interfaces.Document, error) {
				return RemoveHistory(source, md.Key), nil
			},
		}).
		Commit(ctx)
}

// Mutate applies fn to the stored record inside a repository patch, keeping
// the source document's history entry in sync.
func (s *Store) Mutate(ctx context.Context, key string, fn func(md *Metadata) error) error {
	current, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	tx := s.repo.Transaction().
		Patch(MetadataDocumentID(key), interfaces.PatchSpec{
			Mutate: func(interfaces.Document) (interfaces.Document, error) {
				if err := fn(current); err != nil {
					return nil, err
				}
				current.UpdatedAt = s.clock()
				return EncodeMetadata(current)
			},
		}).
		Patch(current.Source.ID, interfaces.PatchSpec{
			Mutate: func(source interfaces.Document) (interfaces.Document, error) {
				return UpsertHistory(source, current.HistoryEntry()), nil
			},
		})
	return tx.Commit(ctx)
}

// Transition moves the record to the next lifecycle status, enforcing the
// state machine.
func (s *Store) Transition(ctx context.Context, key string, next Status) error {
	return s.Mutate(ctx, key, func(md *Metadata) error {
		if !md.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrStatusTransition, md.Status, next)
		}
		md.Status = next
		return nil
	})
}

// HistoryEntry projects the record into its in-document history form.
func (m *Metadata) HistoryEntry() HistoryEntry {
	return HistoryEntry{
		Key:          m.Key,
		Status:       m.Status,
		Languages:    m.Languages(),
		Paths:        m.Paths,
		TranslatedAt: m.TranslatedAt,
		CommittedAt:  m.CommittedAt,
	}
}

// LockRecords projects metadata records into the lock model's shape, one
// record per (metadata, target language) pairing.
func LockRecords(records []*Metadata) []locks.Record {
	out := make([]locks.Record, 0, len(records))
	for _, md := range records {
		if len(md.Targets) == 0 {
			out = append(out, locks.Record{
				Key:    md.Key,
				Paths:  md.Paths,
				Active: md.Status.Active(),
			})
			continue
		}
		for _, target := range md.Targets {
			out = append(out, locks.Record{
				Key:      md.Key,
				Language: target.Language,
				Paths:    md.Paths,
				Active:   md.Status.Active(),
			})
		}
	}
	return out
}
