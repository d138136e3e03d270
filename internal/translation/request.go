package translation

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/identity"
)

// Request is the immutable description of what to translate. Its derived Key
// deterministically names every downstream record, which makes the whole
// pipeline idempotent when retried with identical inputs.
type Request struct {
	Source          DocumentRef     `json:"source"`
	Paths           []document.Path `json:"paths"`
	TargetLanguages []string        `json:"targetLanguages"`
	TemplateID      string          `json:"templateId"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
}

// Validate rejects malformed requests before any side effect. The path list
// must be explicit and non-empty; a single empty path scopes the whole
// document.
func (r Request) Validate() error {
	errs := validation.Errors{}
	if r.Source.ID == "" {
		errs["source.id"] = ErrSourceIDRequired
	}
	if r.Source.Revision == "" {
		errs["source.revision"] = ErrRevisionRequired
	}
	if len(r.Paths) == 0 {
		errs["paths"] = ErrPathsRequired
	}
	if len(r.TargetLanguages) == 0 {
		errs["targetLanguages"] = ErrLanguagesRequired
	}
	if r.TemplateID == "" {
		errs["templateId"] = ErrTemplateRequired
	}
	if err := validation.Validate(r.TargetLanguages, validation.Each(validation.Required)); err != nil {
		errs["targetLanguages"] = ErrLanguagesRequired
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Key derives the deterministic translation key from the request's path scope
// and source revision.
func (r Request) Key() string {
	return identity.TranslationKey(document.Strings(r.Paths), r.Source.Revision)
}

// WholeDocument reports whether the request covers the entire document.
func (r Request) WholeDocument() bool {
	for _, p := range r.Paths {
		if p.IsEmpty() {
			return true
		}
	}
	return false
}
