package vendorcontent

import "sort"

// CollectReferences walks a document and returns every referenced document
// id, deduplicated and sorted for deterministic lookups.
func CollectReferences(value any) []string {
	seen := map[string]struct{}{}
	collectRefs(value, seen)
	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

func collectRefs(value any, seen map[string]struct{}) {
	switch typed := value.(type) {
	case map[string]any:
		if ref, ok := typed[RefField].(string); ok && ref != "" {
			seen[ref] = struct{}{}
		}
		for _, v := range typed {
			collectRefs(v, seen)
		}
	case []any:
		for _, v := range typed {
			collectRefs(v, seen)
		}
	}
}

// RemapReferences returns a copy of value with every reference id swapped
// through the mapping. Ids missing from the mapping are left as they are.
func RemapReferences(value any, mapping map[string]string) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = RemapReferences(v, mapping)
		}
		if ref, ok := out[RefField].(string); ok {
			if translated, mapped := mapping[ref]; mapped && translated != "" {
				out[RefField] = translated
			}
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = RemapReferences(v, mapping)
		}
		return out
	default:
		return value
	}
}
