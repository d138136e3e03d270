package diff

import (
	"testing"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/patch"
)

func keyedBlock(key, text string) map[string]any {
	return map[string]any{"_key": key, "_type": "block", "text": text}
}

func TestDiffEqualDocumentsProducesNoOps(t *testing.T) {
	doc := document.Document{
		"title": "Hello",
		"body":  []any{keyedBlock("b1", "one")},
	}
	ops, err := Diff(doc, document.Clone(doc))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(ops) != 0 {
		t.Fatalf("got %d operations for identical documents: %v", len(ops), ops)
	}
}

func TestDiffRoundTrip(t *testing.T) {
	historic := document.Document{
		"title":   "Hello",
		"summary": "drop me",
		"body": []any{
			keyedBlock("b1", "one"),
			keyedBlock("b3", "three"),
		},
		"meta": map[string]any{"author": "ada"},
	}
	current := document.Document{
		"title": "Bonjour",
		"body": []any{
			keyedBlock("b1", "uno"),
			keyedBlock("b2", "two"),
			keyedBlock("b3", "three"),
		},
		"meta": map[string]any{"author": "ada", "editor": "grace"},
	}

	ops, err := Diff(current, document.Clone(historic))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	replayed, err := patch.Apply(historic, ops)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !document.Equal(map[string]any(replayed), map[string]any(current)) {
		t.Fatalf("replaying the diff did not reproduce the current document:\n got %v\nwant %v", replayed, current)
	}
}

func TestDiffRoundTripUnkeyedArrayShrinks(t *testing.T) {
	historic := document.Document{
		"rows": []any{
			map[string]any{"text": "a"},
			map[string]any{"text": "b"},
			map[string]any{"text": "c"},
		},
	}
	current := document.Document{
		"rows": []any{
			map[string]any{"text": "a"},
		},
	}

	ops, err := Diff(current, document.Clone(historic))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	replayed, err := patch.Apply(historic, ops)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	rows, _ := replayed["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("replayed rows = %v, want exactly the surviving row", rows)
	}
	if !document.Equal(map[string]any(replayed), map[string]any(current)) {
		t.Fatalf("replaying the diff did not reproduce the current document:\n got %v\nwant %v", replayed, current)
	}
}

func TestDiffRoundTripKeyedArrayDropsEveryItem(t *testing.T) {
	historic := document.Document{
		"body": []any{
			keyedBlock("b1", "one"),
			map[string]any{"text": "plain one"},
			map[string]any{"text": "plain two"},
		},
	}
	current := document.Document{
		"body": []any{},
	}

	ops, err := Diff(current, document.Clone(historic))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	replayed, err := patch.Apply(historic, ops)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rows, _ := replayed["body"].([]any); len(rows) != 0 {
		t.Fatalf("replayed body = %v, want empty", rows)
	}
}

func TestDiffRoundTripKeepsDuplicateUnkeyedItems(t *testing.T) {
	historic := document.Document{
		"rows": []any{
			map[string]any{"text": "x"},
		},
	}
	current := document.Document{
		"rows": []any{
			map[string]any{"text": "x"},
			map[string]any{"text": "x"},
		},
	}

	ops, err := Diff(current, document.Clone(historic))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	replayed, err := patch.Apply(historic, ops)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	rows, _ := replayed["rows"].([]any)
	if len(rows) != 2 {
		t.Fatalf("replayed rows = %v, want both duplicates", rows)
	}
}

func TestDiffKeyedInsertCarriesNeighborIdentities(t *testing.T) {
	historic := document.Document{
		"body": []any{keyedBlock("b1", "one"), keyedBlock("b3", "three")},
	}
	current := document.Document{
		"body": []any{keyedBlock("b1", "one"), keyedBlock("b2", "two"), keyedBlock("b3", "three")},
	}

	ops, err := Diff(current, historic)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want a single insert: %v", len(ops), ops)
	}
	op := ops[0]
	if op.Kind != patch.KindInsert {
		t.Fatalf("got kind %s, want insert", op.Kind)
	}
	if op.Insert == nil {
		t.Fatal("keyed insert must carry positional metadata")
	}
	if op.Insert.Prev != "b1" || op.Insert.Next != "b3" {
		t.Fatalf("neighbor identities prev=%q next=%q, want b1/b3", op.Insert.Prev, op.Insert.Next)
	}
}

func TestDiffPrimitiveArrayResetsAsWhole(t *testing.T) {
	historic := document.Document{"tags": []any{"go", "cms"}}
	current := document.Document{"tags": []any{"go", "tms", "i18n"}}

	ops, err := Diff(current, historic)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want one whole-array set: %v", len(ops), ops)
	}
	if ops[0].Kind != patch.KindSet {
		t.Fatalf("got kind %s, want set", ops[0].Kind)
	}
	if !ops[0].Path.Equal(document.NewPath(document.Field("tags"))) {
		t.Fatalf("reset should target the array itself, got %s", ops[0].Path)
	}
}

func TestDiffIgnoresReservedRootFields(t *testing.T) {
	historic := document.Document{"_id": "doc", "_rev": "rev-1", "title": "Hello"}
	current := document.Document{"_id": "doc", "_rev": "rev-2", "title": "Hello", "_updatedAt": "2026-01-01"}

	ops, err := Diff(current, historic)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(ops) != 0 {
		t.Fatalf("bookkeeping fields must not produce operations: %v", ops)
	}
}

func TestDiffShapeMismatchIsSkipped(t *testing.T) {
	historic := document.Document{"body": []any{keyedBlock("b1", "one")}}
	current := document.Document{"body": map[string]any{"text": "now an object"}}

	ops, err := Diff(current, historic)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	for _, op := range ops {
		if op.Path.String() == "body" || document.NewPath(document.Field("body")).IsAncestorOf(op.Path) {
			t.Fatalf("shape-mismatched subtree must not produce operations: %v", op)
		}
	}
}

func TestChangedPathsReportsTouchedPaths(t *testing.T) {
	historic := document.Document{"title": "Hello", "summary": "same"}
	current := document.Document{"title": "Bonjour", "summary": "same"}

	paths, err := ChangedPaths(current, historic)
	if err != nil {
		t.Fatalf("changed paths: %v", err)
	}
	if len(paths) != 1 || !paths[0].Equal(document.NewPath(document.Field("title"))) {
		t.Fatalf("got %v, want [title]", paths)
	}
}
