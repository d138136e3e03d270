package translation

import "errors"

var (
	ErrNotFound           = errors.New("translation: metadata record not found")
	ErrSourceIDRequired   = errors.New("translation: source document id is required")
	ErrRevisionRequired   = errors.New("translation: source revision is required")
	ErrPathsRequired      = errors.New("translation: at least one path scope is required")
	ErrLanguagesRequired  = errors.New("translation: at least one target language is required")
	ErrTemplateRequired   = errors.New("translation: vendor project template is required")
	ErrRevisionMismatch   = errors.New("translation: source revision changed since the request was formed")
	ErrDocumentLocked     = errors.New("translation: a conflicting translation is already in progress")
	ErrStatusTransition   = errors.New("translation: illegal status transition")
	ErrSnapshotMissing    = errors.New("translation: metadata record has no source snapshot")
	ErrNoSalvagePayload   = errors.New("translation: metadata record has no salvage payload")
	ErrWorkingDocMissing  = errors.New("translation: working document not found")
	ErrMetadataMalformed  = errors.New("translation: metadata record is malformed")
	ErrLanguageUnmapped   = errors.New("translation: language has no vendor code mapping")
	ErrTargetDocMismatch  = errors.New("translation: adapter returned unexpected target documents")
	ErrTypeUntranslatable = errors.New("translation: document type is not translatable")
)
