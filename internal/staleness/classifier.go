// Package staleness classifies translation targets against the source
// document's current state: untranslated, fresh, stale (with the exact
// changed paths), ongoing, or untranslatable.
package staleness

import (
	"context"
	"time"

	"github.com/goliatone/go-tms/internal/diff"
	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/logging"
	"github.com/goliatone/go-tms/internal/translation"
	"github.com/goliatone/go-tms/pkg/interfaces"
)

// Status is the per-language classification outcome.
type Status string

const (
	StatusUntranslatable Status = "UNTRANSLATABLE"
	StatusUntranslated   Status = "UNTRANSLATED"
	StatusOngoing        Status = "ONGOING"
	StatusFresh          Status = "FRESH"
	StatusStale          Status = "STALE"
)

// Result carries the classification of one target language. Err is set when
// the language could not be classified; sibling languages are unaffected.
type Result struct {
	Language     string
	Status       Status
	ChangedPaths []document.Path
	TranslatedAt *time.Time
	Err          error
}

// Classifier evaluates translation staleness for a source document.
type Classifier struct {
	store        *translation.Store
	translatable map[string]struct{}
	logger       interfaces.Logger
}

// NewClassifier builds a classifier. An empty translatableTypes list means
// every document type is translatable.
func NewClassifier(store *translation.Store, translatableTypes []string, logger interfaces.Logger) *Classifier {
	translatable := make(map[string]struct{}, len(translatableTypes))
	for _, t := range translatableTypes {
		translatable[t] = struct{}{}
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Classifier{store: store, translatable: translatable, logger: logger}
}

// Classify evaluates every requested target language against the source
// document's translation history, in priority order: untranslatable type,
// no history, unfinished translation touching the language, then a diff of
// the current state against the snapshot of the most recent committed record.
func (c *Classifier) Classify(ctx context.Context, source document.Document, languages []string) []Result {
	results := make([]Result, 0, len(languages))

	docType, _ := source[document.TypeField].(string)
	if !c.isTranslatable(docType) {
		for _, lang := range languages {
			results = append(results, Result{Language: lang, Status: StatusUntranslatable})
		}
		return results
	}

	history := translation.History(source)
	for _, lang := range languages {
		results = append(results, c.classifyLanguage(ctx, source, history, lang))
	}
	return results
}

func (c *Classifier) isTranslatable(docType string) bool {
	if len(c.translatable) == 0 {
		return true
	}
	_, ok := c.translatable[docType]
	return ok
}

func (c *Classifier) classifyLanguage(ctx context.Context, source document.Document, history []translation.HistoryEntry, lang string) Result {
	if len(history) == 0 {
		return Result{Language: lang, Status: StatusUntranslated}
	}

	for _, entry := range history {
		if entry.Status.Active() && touchesLanguage(entry, lang) {
			return Result{Language: lang, Status: StatusOngoing}
		}
	}

	latest, ok := latestCommitted(history, lang)
	if !ok {
		return Result{Language: lang, Status: StatusUntranslated}
	}

	record, err := c.store.Get(ctx, latest.Key)
	if err != nil {
		c.logger.Warn("staleness.classify.fetch_failed", "language", lang, "key", latest.Key, "error", err)
		return Result{Language: lang, Err: err}
	}
	if record.Snapshot == nil {
		return Result{Language: lang, Err: translation.ErrSnapshotMissing}
	}

	changed, err := diff.ChangedPaths(source, record.Snapshot)
	if err != nil {
		return Result{Language: lang, Err: err}
	}
	translatedAt := record.TranslatedAt
	if translatedAt == nil {
		translatedAt = record.CommittedAt
	}
	if len(changed) == 0 {
		return Result{Language: lang, Status: StatusFresh, TranslatedAt: translatedAt}
	}
	return Result{Language: lang, Status: StatusStale, ChangedPaths: changed, TranslatedAt: translatedAt}
}

func touchesLanguage(entry translation.HistoryEntry, lang string) bool {
	for _, l := range entry.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func latestCommitted(history []translation.HistoryEntry, lang string) (translation.HistoryEntry, bool) {
	var latest translation.HistoryEntry
	found := false
	for _, entry := range history {
		if entry.Status != translation.StatusCommitted || !touchesLanguage(entry, lang) {
			continue
		}
		if !found || after(entry.CommittedAt, latest.CommittedAt) {
			latest = entry
			found = true
		}
	}
	return latest, found
}

func after(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
