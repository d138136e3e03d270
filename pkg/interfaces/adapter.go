package interfaces

import "context"

// TranslatedDocumentsRequest asks the host content model for the per-language
// counterparts of a source document, creating missing shells when needed.
type TranslatedDocumentsRequest struct {
	SourceID        string
	SourceType      string
	SourceLanguage  string
	TargetLanguages []string
}

// DocumentAdapter is the pluggable bridge between the TMS and the host's
// content model. It resolves per-language documents and reference identities
// and owns the language-code mapping between host and vendor.
type DocumentAdapter interface {
	// GetOrCreateTranslatedDocuments returns one document per requested target
	// language, in request order, creating empty shells for languages that do
	// not have a counterpart yet.
	GetOrCreateTranslatedDocuments(ctx context.Context, req TranslatedDocumentsRequest) ([]Document, error)

	// GetTranslatedReferences maps source-language reference ids to their
	// target-language equivalents. Unresolvable refs are omitted from the
	// result rather than reported as errors.
	GetTranslatedReferences(ctx context.Context, refs []string, targetLanguage string) (map[string]string, error)

	// DocumentLanguage extracts the language code of a document, empty when
	// the document carries none.
	DocumentLanguage(doc Document) string

	// InjectDocumentLanguage returns a copy of doc with the language code set
	// the way the host content model records it.
	InjectDocumentLanguage(doc Document, language string) Document

	// VendorLanguageCode translates a host language code to the vendor's
	// representation. The second return is false for unmapped codes.
	VendorLanguageCode(hostCode string) (string, bool)

	// HostLanguageCode is the inverse of VendorLanguageCode.
	HostLanguageCode(vendorCode string) (string, bool)
}
