package testsupport

import (
	"encoding/json"
	"os"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

func LoadFixture(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func LoadGolden(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SamplePost builds a small post document with the reserved identity fields
// set, suitable for seeding a content repository in tests.
func SamplePost(id, revision string) interfaces.Document {
	return interfaces.Document{
		document.IDField:       id,
		document.TypeField:     "post",
		document.RevisionField: revision,
		"title":                "Hello",
		"body": []any{
			map[string]any{
				document.KeyField: "b1",
				"_type":           "block",
				"text":            "First paragraph",
			},
			map[string]any{
				document.KeyField: "b2",
				"_type":           "block",
				"text":            "Second paragraph",
			},
		},
	}
}

// CloneDocument deep-copies a document so tests can mutate one side freely.
func CloneDocument(doc interfaces.Document) interfaces.Document {
	return document.Clone(doc)
}
