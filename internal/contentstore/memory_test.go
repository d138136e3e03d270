package contentstore

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-tms/pkg/interfaces"
)

func seedDoc(id string, extra map[string]any) interfaces.Document {
	doc := interfaces.Document{"_id": id, "_type": "post"}
	for k, v := range extra {
		doc[k] = v
	}
	return doc
}

func TestMemorySeedAndFetch(t *testing.T) {
	store := NewMemory()
	if err := store.Seed(seedDoc("a", map[string]any{"title": "A"})); err != nil {
		t.Fatalf("seed: %v", err)
	}
	docs, err := store.FetchByIDs(context.Background(), []string{"a", "missing"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0]["title"] != "A" {
		t.Fatalf("content lost: %v", docs[0])
	}
	if rev, _ := docs[0]["_rev"].(string); rev == "" {
		t.Fatal("seeded documents must carry a revision")
	}
}

func TestMemoryCreateRejectsDuplicates(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Transaction().Create(seedDoc("a", nil)).Commit(ctx); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := store.Transaction().Create(seedDoc("a", nil)).Commit(ctx)
	if !errors.Is(err, ErrDocumentExists) {
		t.Fatalf("got %v, want ErrDocumentExists", err)
	}
}

func TestMemoryPatchRevisionGuard(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Seed(seedDoc("a", map[string]any{"title": "A"})); err != nil {
		t.Fatalf("seed: %v", err)
	}
	docs, _ := store.FetchByIDs(ctx, []string{"a"})
	rev := docs[0]["_rev"].(string)

	err := store.Transaction().Patch("a", interfaces.PatchSpec{
		IfRevision: rev,
		Mutate: func(doc interfaces.Document) (interfaces.Document, error) {
			doc["title"] = "B"
			return doc, nil
		},
	}).Commit(ctx)
	if err != nil {
		t.Fatalf("patch with current revision: %v", err)
	}

	err = store.Transaction().Patch("a", interfaces.PatchSpec{
		IfRevision: rev,
		Mutate: func(doc interfaces.Document) (interfaces.Document, error) {
			return doc, nil
		},
	}).Commit(ctx)
	if !errors.Is(err, ErrRevisionConflict) {
		t.Fatalf("got %v, want ErrRevisionConflict for a stale revision", err)
	}
}

func TestMemoryPatchMissingDocument(t *testing.T) {
	store := NewMemory()
	err := store.Transaction().Patch("ghost", interfaces.PatchSpec{
		Mutate: func(doc interfaces.Document) (interfaces.Document, error) { return doc, nil },
	}).Commit(context.Background())
	if !errors.Is(err, ErrDocumentMissing) {
		t.Fatalf("got %v, want ErrDocumentMissing", err)
	}
}

func TestMemoryCommitIsAtomic(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	err := store.Transaction().
		Create(seedDoc("a", nil)).
		Patch("ghost", interfaces.PatchSpec{
			Mutate: func(doc interfaces.Document) (interfaces.Document, error) { return doc, nil },
		}).
		Commit(ctx)
	if err == nil {
		t.Fatal("expected the batch to fail")
	}

	docs, _ := store.FetchByIDs(ctx, []string{"a"})
	if len(docs) != 0 {
		t.Fatal("a failed batch must leave no partial writes")
	}
}

func TestMemoryPatchAssignsNewRevision(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Seed(seedDoc("a", nil)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before, _ := store.FetchByIDs(ctx, []string{"a"})

	err := store.Transaction().Patch("a", interfaces.PatchSpec{
		Mutate: func(doc interfaces.Document) (interfaces.Document, error) {
			doc["title"] = "changed"
			return doc, nil
		},
	}).Commit(ctx)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	after, _ := store.FetchByIDs(ctx, []string{"a"})
	if before[0]["_rev"] == after[0]["_rev"] {
		t.Fatal("every write must mint a new revision")
	}
}

func TestMemoryFetchByQuery(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Seed(
		seedDoc("a", map[string]any{"source": map[string]any{"id": "post-1"}}),
		seedDoc("b", map[string]any{"source": map[string]any{"id": "post-2"}}),
		interfaces.Document{"_id": "c", "_type": "page"},
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	docs, err := store.FetchByQuery(ctx, interfaces.Query{
		Type:  "post",
		Where: map[string]any{"source.id": "post-1"},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0]["_id"] != "a" {
		t.Fatalf("dotted-path filter selected %v", docs)
	}

	docs, err = store.FetchByQuery(ctx, interfaces.Query{Type: "post"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("type filter selected %d documents, want 2", len(docs))
	}
}

func TestMemoryDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Seed(seedDoc("a", nil)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Transaction().Delete("a").Commit(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	docs, _ := store.FetchByIDs(ctx, []string{"a"})
	if len(docs) != 0 {
		t.Fatal("document should be gone")
	}
}
