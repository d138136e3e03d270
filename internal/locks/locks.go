// Package locks derives lock state from in-flight translation records. A lock
// is never a stored entity: it is the presence of an active record whose path
// scope overlaps the requested one.
package locks

import "github.com/goliatone/go-tms/internal/document"

// Record is the lock-relevant projection of a translation metadata record.
// Active must be false for committed and cancelled records.
type Record struct {
	Key      string
	Language string
	Paths    []document.Path
	Active   bool
}

// IsDocLocked reports whether any active record on the document overlaps the
// requested path scope, regardless of target language. An empty requested
// scope means the whole document and conflicts with any active record.
func IsDocLocked(records []Record, requested []document.Path) bool {
	for _, record := range records {
		if !record.Active {
			continue
		}
		if scopesOverlap(record.Paths, requested) {
			return true
		}
	}
	return false
}

// IsTranslationLocked reports whether an active sibling record targeting the
// same language overlaps the requested scope. This is the second gate that
// stops two independent requests racing to translate overlapping content to
// the same target before either commits.
func IsTranslationLocked(records []Record, language string, requested []document.Path) bool {
	for _, record := range records {
		if !record.Active || record.Language != language {
			continue
		}
		if scopesOverlap(record.Paths, requested) {
			return true
		}
	}
	return false
}

// scopesOverlap applies the shared-root intersection rule. A record scoped to
// the whole document (no paths, or any empty path) always overlaps.
func scopesOverlap(recorded, requested []document.Path) bool {
	if wholeDocument(recorded) || wholeDocument(requested) {
		return true
	}
	for _, rec := range recorded {
		for _, req := range requested {
			if rec.Intersects(req) {
				return true
			}
		}
	}
	return false
}

func wholeDocument(paths []document.Path) bool {
	if len(paths) == 0 {
		return true
	}
	for _, p := range paths {
		if p.IsEmpty() {
			return true
		}
	}
	return false
}
