package identity

import "testing"

func TestUUIDIsDeterministic(t *testing.T) {
	a := UUID("some-key")
	b := UUID("some-key")
	if a != b {
		t.Fatalf("same input produced different uuids: %s vs %s", a, b)
	}
	if a == UUID("other-key") {
		t.Fatal("different inputs must produce different uuids")
	}
}

func TestTranslationKeyIgnoresPathOrder(t *testing.T) {
	a := TranslationKey([]string{"title", "body"}, "rev-1")
	b := TranslationKey([]string{"body", "title"}, "rev-1")
	if a != b {
		t.Fatalf("path order changed the key: %s vs %s", a, b)
	}
}

func TestTranslationKeyVariesWithRevision(t *testing.T) {
	a := TranslationKey([]string{"title"}, "rev-1")
	b := TranslationKey([]string{"title"}, "rev-2")
	if a == b {
		t.Fatal("different revisions must produce different keys")
	}
}

func TestDocumentRecordUUIDIsStable(t *testing.T) {
	if DocumentRecordUUID("doc-1") != DocumentRecordUUID("doc-1") {
		t.Fatal("same document id must map to the same row uuid")
	}
	if DocumentRecordUUID("doc-1") == DocumentRecordUUID("doc-2") {
		t.Fatal("different document ids must map to different row uuids")
	}
}
