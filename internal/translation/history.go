package translation

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-tms/internal/document"
)

// HistoryEntry is one element of the in-document translation history block
// carried on every main document under document.MetadataField, keyed by
// translation key.
type HistoryEntry struct {
	Key          string          `json:"key"`
	Status       Status          `json:"status"`
	Languages    []string        `json:"languages"`
	Paths        []document.Path `json:"paths"`
	TranslatedAt *time.Time      `json:"translatedAt,omitempty"`
	CommittedAt  *time.Time      `json:"committedAt,omitempty"`
}

// History decodes the translation history block of a document. Malformed
// blocks decode to an empty history rather than failing the caller.
func History(doc document.Document) []HistoryEntry {
	raw, ok := doc[document.MetadataField]
	if !ok || document.IsAbsent(raw) {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(encoded, &entries); err != nil {
		return nil
	}
	return entries
}

// UpsertHistory returns a copy of doc with the entry added, replacing any
// entry carrying the same translation key.
func UpsertHistory(doc document.Document, entry HistoryEntry) document.Document {
	out := document.Clone(doc)
	entries := History(doc)
	replaced := false
	for i := range entries {
		if entries[i].Key == entry.Key {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	out[document.MetadataField] = encodeHistory(entries)
	return out
}

// RemoveHistory returns a copy of doc without the entry for key. The block is
// dropped entirely when it becomes empty.
func RemoveHistory(doc document.Document, key string) document.Document {
	out := document.Clone(doc)
	entries := History(doc)
	kept := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Key != key {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(out, document.MetadataField)
		return out
	}
	out[document.MetadataField] = encodeHistory(kept)
	return out
}

// encodeHistory round-trips entries through JSON so the stored block contains
// only plain document values.
func encodeHistory(entries []HistoryEntry) any {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return nil
	}
	var raw any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return nil
	}
	return raw
}
