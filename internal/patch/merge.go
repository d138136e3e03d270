package patch

import "github.com/goliatone/go-tms/internal/document"

// Merge replays operations against a live target document while pinning the
// repository-owned static fields (identity, revision, type, timestamps, and
// the translation metadata block) to the target's own values. Translated
// content can therefore never overwrite document identity or bookkeeping
// fields, whatever the operation list says.
func Merge(target document.Document, ops []Operation) (document.Document, error) {
	merged, err := Apply(target, ops)
	if err != nil {
		return nil, err
	}
	for _, field := range document.StaticFields {
		if value, ok := target[field]; ok {
			merged[field] = document.Clone(value)
		} else {
			delete(merged, field)
		}
	}
	return merged, nil
}
