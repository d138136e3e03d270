package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// LanguageField is where the fake adapter records a document's language.
const LanguageField = "language"

// AdapterFake is an in-memory DocumentAdapter with a fixed host-to-vendor
// language table. Missing translated documents are created as shells with an
// id of "<sourceID>-<language>".
type AdapterFake struct {
	mu sync.Mutex

	// Languages maps host codes to vendor codes, e.g. "fr" to "fr-FR".
	Languages map[string]string

	// References maps target language to source ids to translated ids.
	References map[string]map[string]string

	GetOrCreateErr error
	ReferencesErr  error

	// Seeder, when set, persists created shells so commit targets exist in
	// the content repository, the way a real host adapter would.
	Seeder DocumentSeeder

	docs map[string]map[string]interfaces.Document
}

// DocumentSeeder is the subset of a content repository the fake needs to
// persist shells it creates.
type DocumentSeeder interface {
	Seed(docs ...interfaces.Document) error
}

func NewAdapterFake(languages map[string]string) *AdapterFake {
	return &AdapterFake{
		Languages:  languages,
		References: map[string]map[string]string{},
		docs:       map[string]map[string]interfaces.Document{},
	}
}

// SeedTranslated installs an existing translated counterpart for a source
// document, so GetOrCreateTranslatedDocuments returns it instead of a shell.
func (a *AdapterFake) SeedTranslated(sourceID, language string, doc interfaces.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.docs[sourceID] == nil {
		a.docs[sourceID] = map[string]interfaces.Document{}
	}
	a.docs[sourceID][language] = doc
}

func (a *AdapterFake) GetOrCreateTranslatedDocuments(ctx context.Context, req interfaces.TranslatedDocumentsRequest) ([]interfaces.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.GetOrCreateErr != nil {
		return nil, a.GetOrCreateErr
	}
	out := make([]interfaces.Document, 0, len(req.TargetLanguages))
	for _, lang := range req.TargetLanguages {
		if doc, ok := a.docs[req.SourceID][lang]; ok {
			out = append(out, doc)
			continue
		}
		shell := interfaces.Document{
			document.IDField:   req.SourceID + "-" + lang,
			document.TypeField: req.SourceType,
			LanguageField:      lang,
		}
		if a.docs[req.SourceID] == nil {
			a.docs[req.SourceID] = map[string]interfaces.Document{}
		}
		a.docs[req.SourceID][lang] = shell
		if a.Seeder != nil {
			if err := a.Seeder.Seed(shell); err != nil {
				return nil, err
			}
		}
		out = append(out, shell)
	}
	return out, nil
}

func (a *AdapterFake) GetTranslatedReferences(ctx context.Context, refs []string, targetLanguage string) (map[string]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ReferencesErr != nil {
		return nil, a.ReferencesErr
	}
	table := a.References[targetLanguage]
	out := map[string]string{}
	for _, ref := range refs {
		if translated, ok := table[ref]; ok {
			out[ref] = translated
		}
	}
	return out, nil
}

func (a *AdapterFake) DocumentLanguage(doc interfaces.Document) string {
	lang, _ := doc[LanguageField].(string)
	return lang
}

func (a *AdapterFake) InjectDocumentLanguage(doc interfaces.Document, language string) interfaces.Document {
	out := make(interfaces.Document, len(doc)+1)
	for k, val := range doc {
		out[k] = val
	}
	out[LanguageField] = language
	return out
}

func (a *AdapterFake) VendorLanguageCode(hostCode string) (string, bool) {
	code, ok := a.Languages[hostCode]
	return code, ok
}

func (a *AdapterFake) HostLanguageCode(vendorCode string) (string, bool) {
	for host, vendor := range a.Languages {
		if vendor == vendorCode {
			return host, true
		}
	}
	return "", false
}

var _ interfaces.DocumentAdapter = (*AdapterFake)(nil)
