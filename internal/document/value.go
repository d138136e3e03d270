package document

import "reflect"

// Document is the decoded JSON tree the engines operate on.
type Document = map[string]any

// Reserved fields owned by the content repository. Translation content can
// never overwrite these on a live document.
const (
	IDField        = "_id"
	TypeField      = "_type"
	RevisionField  = "_rev"
	CreatedAtField = "_createdAt"
	UpdatedAtField = "_updatedAt"
	// MetadataField is the in-document block listing translation history entries.
	MetadataField = "_translations"
)

// StaticFields are pinned to the target document's own values during a merge.
var StaticFields = []string{IDField, TypeField, RevisionField, CreatedAtField, UpdatedAtField, MetadataField}

// IsAbsent reports whether a value counts as missing. Null and undefined are
// both treated as absent.
func IsAbsent(v any) bool {
	return v == nil
}

// IsContainer reports whether the value is an object or array.
func IsContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// SameShape reports whether both values are objects, both arrays, or both
// scalars. Mixed shapes short-circuit diffing for that subtree.
func SameShape(a, b any) bool {
	_, aMap := a.(map[string]any)
	_, bMap := b.(map[string]any)
	if aMap || bMap {
		return aMap && bMap
	}
	_, aArr := a.([]any)
	_, bArr := b.([]any)
	if aArr || bArr {
		return aArr && bArr
	}
	return true
}

// ItemKey extracts the stable identity of an array item, empty when the item
// is not a keyed object.
func ItemKey(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	key, _ := obj[KeyField].(string)
	return key
}

// Clone performs a deep copy of a document value.
func Clone[T any](v T) T {
	cloned, _ := cloneValue(any(v)).(T)
	return cloned
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Equal performs deep value equality with numeric normalization so ints and
// the float64 values produced by JSON decoding compare as expected.
func Equal(a, b any) bool {
	if na, ok := asFloat(a); ok {
		nb, okB := asFloat(b)
		return okB && na == nb
	}
	switch typedA := a.(type) {
	case map[string]any:
		typedB, ok := b.(map[string]any)
		if !ok || len(typedA) != len(typedB) {
			return false
		}
		for k, va := range typedA {
			vb, present := typedB[k]
			if !present || !Equal(va, vb) {
				return false
			}
		}
		return true
	case []any:
		typedB, ok := b.([]any)
		if !ok || len(typedA) != len(typedB) {
			return false
		}
		for i := range typedA {
			if !Equal(typedA[i], typedB[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

// Get resolves the value at path, reporting whether every segment matched.
func Get(root any, path Path) (any, bool) {
	current := root
	for _, seg := range path {
		switch seg.Kind {
		case SegmentField:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			v, present := obj[seg.Field]
			if !present {
				return nil, false
			}
			current = v
		case SegmentIndex:
			arr, ok := current.([]any)
			if !ok || seg.Index < 0 || seg.Index >= len(arr) {
				return nil, false
			}
			current = arr[seg.Index]
		case SegmentKey:
			arr, ok := current.([]any)
			if !ok {
				return nil, false
			}
			idx := IndexOfKey(arr, seg.Key)
			if idx < 0 {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// IndexOfKey locates the array item carrying the given `_key`, -1 when absent.
func IndexOfKey(arr []any, key string) int {
	if key == "" {
		return -1
	}
	for i, item := range arr {
		if ItemKey(item) == key {
			return i
		}
	}
	return -1
}

// HasKeyedItems reports whether any array item carries a stable identity.
func HasKeyedItems(arr []any) bool {
	for _, item := range arr {
		if ItemKey(item) != "" {
			return true
		}
	}
	return false
}

// AllScalars reports whether the array holds only scalar values.
func AllScalars(arr []any) bool {
	for _, item := range arr {
		if IsContainer(item) {
			return false
		}
	}
	return true
}
