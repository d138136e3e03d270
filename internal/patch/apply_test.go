package patch

import (
	"testing"

	"github.com/goliatone/go-tms/internal/document"
)

func TestApplySetScalar(t *testing.T) {
	base := document.Document{"title": "Hello"}
	out, err := Apply(base, []Operation{Set(document.NewPath(document.Field("title")), "Bonjour")})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out["title"] != "Bonjour" {
		t.Fatalf("got %v, want Bonjour", out["title"])
	}
	if base["title"] != "Hello" {
		t.Fatal("apply must not mutate the base document")
	}
}

func TestApplyUnsetNestedField(t *testing.T) {
	base := document.Document{
		"body": []any{
			map[string]any{"_key": "b1", "text": "one", "note": "drop me"},
		},
	}
	path := document.NewPath(document.Field("body"), document.Key("b1"), document.Field("note"))
	out, err := Apply(base, []Operation{Unset(path)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	item := out["body"].([]any)[0].(map[string]any)
	if _, present := item["note"]; present {
		t.Fatal("note should have been removed")
	}
	if item["text"] != "one" {
		t.Fatal("sibling field must survive the unset")
	}
}

func TestApplyInsertPositionedByNeighbor(t *testing.T) {
	base := document.Document{
		"body": []any{
			map[string]any{"_key": "b1", "text": "one"},
			map[string]any{"_key": "b3", "text": "three"},
		},
	}
	path := document.NewPath(document.Field("body"), document.Key("b2"))
	item := map[string]any{"_key": "b2", "text": "two"}

	out, err := Apply(base, []Operation{Insert(path, item, &InsertAt{Index: 1, Prev: "b1", Next: "b3"})})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	arr := out["body"].([]any)
	if len(arr) != 3 {
		t.Fatalf("got %d items, want 3", len(arr))
	}
	if got := arr[1].(map[string]any)["_key"]; got != "b2" {
		t.Fatalf("inserted item landed at key %v, want b2 in the middle", got)
	}
}

func TestApplyInsertFallsBackToIndexWhenNeighborsGone(t *testing.T) {
	base := document.Document{
		"body": []any{
			map[string]any{"_key": "x1", "text": "only"},
		},
	}
	path := document.NewPath(document.Field("body"), document.Key("b2"))
	item := map[string]any{"_key": "b2", "text": "two"}

	out, err := Apply(base, []Operation{Insert(path, item, &InsertAt{Index: 5, Prev: "gone", Next: "also-gone"})})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	arr := out["body"].([]any)
	if len(arr) != 2 {
		t.Fatalf("got %d items, want 2", len(arr))
	}
	if got := arr[len(arr)-1].(map[string]any)["_key"]; got != "b2" {
		t.Fatalf("orphaned insert should clamp to the end, got %v", got)
	}
}

func TestApplyInsertAtIndexKeepsEqualSibling(t *testing.T) {
	base := document.Document{
		"rows": []any{
			map[string]any{"text": "x"},
		},
	}
	path := document.NewPath(document.Field("rows"), document.Index(1))
	item := map[string]any{"text": "x"}

	out, err := Apply(base, []Operation{Insert(path, item, &InsertAt{Index: 1})})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	arr := out["rows"].([]any)
	if len(arr) != 2 {
		t.Fatalf("got %d items, want the duplicate inserted alongside the original", len(arr))
	}
}

func TestApplyUnsetsByDescendingIndexShrinkArray(t *testing.T) {
	base := document.Document{
		"rows": []any{
			map[string]any{"text": "a"},
			map[string]any{"text": "b"},
			map[string]any{"text": "c"},
		},
	}
	ops := []Operation{
		Unset(document.NewPath(document.Field("rows"), document.Index(2))),
		Unset(document.NewPath(document.Field("rows"), document.Index(1))),
	}

	out, err := Apply(base, ops)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	arr := out["rows"].([]any)
	if len(arr) != 1 {
		t.Fatalf("got %d items, want 1", len(arr))
	}
	if got := arr[0].(map[string]any)["text"]; got != "a" {
		t.Fatalf("surviving row = %v, want a", got)
	}
}

func TestApplySetThroughScalarFails(t *testing.T) {
	base := document.Document{"title": "Hello"}
	path := document.NewPath(document.Field("title"), document.Field("deep"))
	if _, err := Apply(base, []Operation{Set(path, "x")}); err == nil {
		t.Fatal("expected an error for a set through a scalar")
	}
}

func TestApplyUnsetMissingValueIsNoOp(t *testing.T) {
	base := document.Document{"title": "Hello"}
	path := document.NewPath(document.Field("missing"), document.Field("deep"))
	out, err := Apply(base, []Operation{Unset(path)})
	if err != nil {
		t.Fatalf("unset of an absent value must pass: %v", err)
	}
	if !document.Equal(map[string]any(base), map[string]any(out)) {
		t.Fatalf("document changed: %v", out)
	}
}

func TestMergePinsStaticFields(t *testing.T) {
	target := document.Document{
		"_id":   "doc-fr",
		"_type": "post",
		"_rev":  "rev-9",
		"title": "Old",
	}
	ops := []Operation{
		Set(document.NewPath(document.Field("title")), "Bonjour"),
		Set(document.NewPath(document.Field("_id")), "evil-id"),
		Set(document.NewPath(document.Field("_rev")), "evil-rev"),
	}
	out, err := Merge(target, ops)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if out["title"] != "Bonjour" {
		t.Fatalf("content change lost: %v", out["title"])
	}
	if out["_id"] != "doc-fr" || out["_rev"] != "rev-9" || out["_type"] != "post" {
		t.Fatalf("static fields must keep the target's values, got %v/%v/%v", out["_id"], out["_rev"], out["_type"])
	}
}

func TestMergeRemovesInjectedStaticFields(t *testing.T) {
	target := document.Document{"_id": "doc-fr", "title": "Old"}
	ops := []Operation{Set(document.NewPath(document.Field("_createdAt")), "2026-01-01")}
	out, err := Merge(target, ops)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, present := out["_createdAt"]; present {
		t.Fatal("a static field absent from the target must stay absent")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	target := document.Document{"_id": "doc-fr", "title": "Old", "summary": "keep"}
	ops := []Operation{
		Set(document.NewPath(document.Field("title")), "Bonjour"),
		Unset(document.NewPath(document.Field("summary"))),
	}
	once, err := Merge(target, ops)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	twice, err := Merge(once, ops)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if !document.Equal(map[string]any(once), map[string]any(twice)) {
		t.Fatalf("replaying the same operations changed the result: %v vs %v", once, twice)
	}
}

func TestDedupeKeepsFirstClaim(t *testing.T) {
	title := document.NewPath(document.Field("title"))
	ops := Dedupe([]Operation{
		Set(title, "first"),
		Set(title, "second"),
	})
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if ops[0].Value != "first" {
		t.Fatalf("dedupe must keep the first claim, got %v", ops[0].Value)
	}
}
