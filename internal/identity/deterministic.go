package identity

import (
	"sort"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// TranslationKey derives the deterministic key naming every record of one
// translation request. Identical (path scope, source revision) inputs always
// produce the same key, which is what makes retried requests idempotent.
func TranslationKey(pathScopes []string, sourceRevision string) string {
	scopes := make([]string, 0, len(pathScopes))
	for _, scope := range pathScopes {
		scopes = append(scopes, strings.TrimSpace(scope))
	}
	sort.Strings(scopes)
	key := "go-tms:translation:" + strings.Join(scopes, "|") + "@" + strings.TrimSpace(sourceRevision)
	return UUID(key).String()
}

// DocumentRecordUUID maps an external string document id onto the uuid primary
// key used by the bun-backed content store.
func DocumentRecordUUID(documentID string) uuid.UUID {
	return UUID("go-tms:document:" + strings.TrimSpace(documentID))
}
