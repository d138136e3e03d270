// Package vendorcontent converts between the native document shape and the
// payloads exchanged with the translation vendor: job payload encoding and
// decoding, human-readable previews, and deterministic job filenames.
package vendorcontent

import (
	"encoding/json"
	"errors"
	"fmt"

	slug "github.com/goliatone/go-slug"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/patch"
)

var (
	// ErrPayloadInvalid indicates vendor-returned content failed shape
	// validation and must not be merged.
	ErrPayloadInvalid = errors.New("vendorcontent: payload failed validation")
	// ErrScopeEmpty indicates no requested path resolved to a value.
	ErrScopeEmpty = errors.New("vendorcontent: no content selected by path scope")
)

// RefField is the reserved field carrying a reference to another document.
const RefField = "_ref"

// Encode selects the requested path scope out of the source document and
// serializes it as the vendor job payload. An empty path in the scope selects
// the whole document. Repository bookkeeping fields are never sent, except
// the source id and type which anchor the payload for decoding.
func Encode(source document.Document, paths []document.Path) ([]byte, error) {
	payload := document.Document{}

	if wholeDocument(paths) {
		payload = document.Clone(source)
		for _, field := range document.StaticFields {
			delete(payload, field)
		}
	} else {
		selected := 0
		for _, p := range paths {
			value, ok := document.Get(any(source), p)
			if !ok || document.IsAbsent(value) {
				continue // omitted: the value was unset since the request was formed
			}
			applied, err := patch.Apply(payload, []patch.Operation{patch.Set(p, value)})
			if err != nil {
				return nil, fmt.Errorf("selecting %q: %w", p.String(), err)
			}
			payload = applied
			selected++
		}
		if selected == 0 {
			return nil, ErrScopeEmpty
		}
	}

	if id, ok := source[document.IDField]; ok {
		payload[document.IDField] = id
	}
	if docType, ok := source[document.TypeField]; ok {
		payload[document.TypeField] = docType
	}
	return json.MarshalIndent(payload, "", "  ")
}

// Decode parses vendor-returned content back into the native document shape,
// validating it against the payload schema before anything can be merged.
func Decode(payload []byte) (document.Document, error) {
	doc, err := validatePayload(payload)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// JobFilename derives the deterministic vendor job filename from the source
// document and translation key. Because the name depends only on the key, a
// retried job creation after a timeout resolves to the same file and the
// vendor deduplicates instead of billing a second job.
func JobFilename(source document.Document, translationKey string) string {
	name := ""
	if title, ok := source["title"].(string); ok {
		name = title
	}
	if name == "" {
		name, _ = source[document.IDField].(string)
	}
	normalized, err := slug.Normalize(name)
	if err != nil || normalized == "" {
		normalized = "document"
	}
	return normalized + "-" + translationKey + ".json"
}

func wholeDocument(paths []document.Path) bool {
	for _, p := range paths {
		if p.IsEmpty() {
			return true
		}
	}
	return false
}
