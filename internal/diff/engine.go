package diff

import (
	"sort"

	"github.com/goliatone/go-tms/internal/document"
	"github.com/goliatone/go-tms/internal/patch"
)

// Diff computes the ordered, deduplicated operation list that transforms the
// historic snapshot into the current document.
//
// The list is assembled in four passes: removals (walking historic against
// current), additions (the same walk with the roles swapped, capturing sibling
// identities for array items), whole-array resets for unkeyed primitive
// arrays, and finally residual scalar replacements computed against an
// intermediate state produced by replaying the structural operations onto the
// historic snapshot. Paths are claimed first-come, ordered unset, insert,
// array-reset, set.
//
// Subtrees whose shape disagrees between the two versions (array vs object)
// are skipped without emitting operations; deciding whether that is an error
// belongs to the caller. Null and missing values are both treated as absent.
// Repository bookkeeping fields at the document root never produce
// operations.
func Diff(current, historic document.Document) ([]patch.Operation, error) {
	unsets, resets := removals(any(current), any(historic), nil)
	inserts := additions(any(current), any(historic), nil)

	structural := make([]patch.Operation, 0, len(unsets)+len(inserts)+len(resets))
	structural = append(structural, unsets...)
	structural = append(structural, inserts...)
	structural = append(structural, resets...)

	intermediate, err := patch.Apply(historic, structural)
	if err != nil {
		return nil, err
	}
	sets := scalarDiffs(any(current), any(intermediate), nil)

	ops := make([]patch.Operation, 0, len(structural)+len(sets))
	ops = append(ops, structural...)
	ops = append(ops, sets...)
	return patch.Dedupe(ops), nil
}

// ChangedPaths runs Diff and reports only the touched paths, which is what
// the staleness classifier needs.
func ChangedPaths(current, historic document.Document) ([]document.Path, error) {
	ops, err := Diff(current, historic)
	if err != nil {
		return nil, err
	}
	return patch.Paths(ops), nil
}

func reservedRootField(p document.Path, field string) bool {
	if !p.IsEmpty() {
		return false
	}
	for _, reserved := range document.StaticFields {
		if field == reserved {
			return true
		}
	}
	return false
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// removals collects unset operations for values present in historic and
// absent in current, plus whole-array reset operations for unkeyed primitive
// arrays that differ in any way.
func removals(current, historic any, p document.Path) (unsets, resets []patch.Operation) {
	switch hist := historic.(type) {
	case map[string]any:
		curr, ok := current.(map[string]any)
		if !ok {
			return nil, nil
		}
		for _, key := range sortedKeys(hist) {
			if reservedRootField(p, key) {
				continue
			}
			hv := hist[key]
			if document.IsAbsent(hv) {
				continue
			}
			child := p.Child(document.Field(key))
			cv, present := curr[key]
			if !present || document.IsAbsent(cv) {
				unsets = append(unsets, patch.Unset(child))
				continue
			}
			u, r := removals(cv, hv, child)
			unsets = append(unsets, u...)
			resets = append(resets, r...)
		}
		return unsets, resets

	case []any:
		curr, ok := current.([]any)
		if !ok {
			return nil, nil
		}
		if document.HasKeyedItems(hist) || document.HasKeyedItems(curr) {
			return keyedRemovals(curr, hist, p)
		}
		if document.AllScalars(hist) && document.AllScalars(curr) {
			// Index-based surgery on primitive arrays is unreliable across
			// reordering, so any difference replaces the whole array.
			if !document.Equal(hist, curr) {
				resets = append(resets, patch.Set(p, document.Clone(any(curr))))
			}
			return nil, resets
		}
		var dropped []int
		for i, hv := range hist {
			child := p.Child(document.Index(i))
			if i >= len(curr) || document.IsAbsent(curr[i]) {
				if !document.IsAbsent(hv) {
					dropped = append(dropped, i)
				}
				continue
			}
			u, r := removals(curr[i], hv, child)
			unsets = append(unsets, u...)
			resets = append(resets, r...)
		}
		// Whole-item unsets go last, highest index first. Replay removes
		// items one at a time, so an earlier removal at a lower index would
		// shift every later index-addressed operation.
		for j := len(dropped) - 1; j >= 0; j-- {
			unsets = append(unsets, patch.Unset(p.Child(document.Index(dropped[j]))))
		}
		return unsets, resets

	default:
		return nil, nil
	}
}

func keyedRemovals(curr, hist []any, p document.Path) (unsets, resets []patch.Operation) {
	var dropped []int
	var keyed []patch.Operation
	for i, hv := range hist {
		key := document.ItemKey(hv)
		if key == "" {
			// Unkeyed item inside a keyed array: index is the only handle.
			child := p.Child(document.Index(i))
			if i >= len(curr) {
				dropped = append(dropped, i)
				continue
			}
			u, r := removals(curr[i], hv, child)
			unsets = append(unsets, u...)
			resets = append(resets, r...)
			continue
		}
		child := p.Child(document.Key(key))
		idx := document.IndexOfKey(curr, key)
		if idx < 0 {
			keyed = append(keyed, patch.Unset(child))
			continue
		}
		u, r := removals(curr[idx], hv, child)
		keyed = append(keyed, u...)
		resets = append(resets, r...)
	}
	// Index-addressed unsets run highest index first and before any
	// key-addressed unset. Key lookups survive reshuffling, index lookups
	// do not, so the index removals must see the array unshifted.
	for j := len(dropped) - 1; j >= 0; j-- {
		unsets = append(unsets, patch.Unset(p.Child(document.Index(dropped[j]))))
	}
	unsets = append(unsets, keyed...)
	return unsets, resets
}

// additions collects insert operations for values present in current and
// absent in historic. Keyed array items carry the identities of their
// current-version neighbors so replay can position them even when intervening
// items changed too.
func additions(current, historic any, p document.Path) []patch.Operation {
	switch curr := current.(type) {
	case map[string]any:
		hist, ok := historic.(map[string]any)
		if !ok {
			return nil
		}
		var inserts []patch.Operation
		for _, key := range sortedKeys(curr) {
			if reservedRootField(p, key) {
				continue
			}
			cv := curr[key]
			if document.IsAbsent(cv) {
				continue
			}
			child := p.Child(document.Field(key))
			hv, present := hist[key]
			if !present || document.IsAbsent(hv) {
				inserts = append(inserts, patch.Insert(child, document.Clone(cv), nil))
				continue
			}
			inserts = append(inserts, additions(cv, hv, child)...)
		}
		return inserts

	case []any:
		hist, ok := historic.([]any)
		if !ok {
			return nil
		}
		if document.HasKeyedItems(curr) || document.HasKeyedItems(hist) {
			return keyedAdditions(curr, hist, p)
		}
		if document.AllScalars(curr) && document.AllScalars(hist) {
			return nil // whole-array reset handles primitive arrays
		}
		var inserts []patch.Operation
		for i, cv := range curr {
			child := p.Child(document.Index(i))
			if i >= len(hist) || document.IsAbsent(hist[i]) {
				if !document.IsAbsent(cv) {
					inserts = append(inserts, patch.Insert(child, document.Clone(cv), &patch.InsertAt{Index: i}))
				}
				continue
			}
			inserts = append(inserts, additions(cv, hist[i], child)...)
		}
		return inserts

	default:
		return nil
	}
}

func keyedAdditions(curr, hist []any, p document.Path) []patch.Operation {
	var inserts []patch.Operation
	for i, cv := range curr {
		key := document.ItemKey(cv)
		if key == "" {
			child := p.Child(document.Index(i))
			if i >= len(hist) {
				inserts = append(inserts, patch.Insert(child, document.Clone(cv), neighborIdentities(curr, i)))
				continue
			}
			inserts = append(inserts, additions(cv, hist[i], child)...)
			continue
		}
		child := p.Child(document.Key(key))
		idx := document.IndexOfKey(hist, key)
		if idx < 0 {
			inserts = append(inserts, patch.Insert(child, document.Clone(cv), neighborIdentities(curr, i)))
			continue
		}
		inserts = append(inserts, additions(cv, hist[idx], child)...)
	}
	return inserts
}

func neighborIdentities(arr []any, i int) *patch.InsertAt {
	at := &patch.InsertAt{Index: i}
	if i > 0 {
		at.Prev = document.ItemKey(arr[i-1])
	}
	if i+1 < len(arr) {
		at.Next = document.ItemKey(arr[i+1])
	}
	return at
}

// scalarDiffs reports set operations for paths whose scalar values still
// differ after the structural operations were replayed onto the historic
// snapshot.
func scalarDiffs(current, intermediate any, p document.Path) []patch.Operation {
	switch curr := current.(type) {
	case map[string]any:
		inter, ok := intermediate.(map[string]any)
		if !ok {
			return nil
		}
		var sets []patch.Operation
		for _, key := range sortedKeys(curr) {
			if reservedRootField(p, key) {
				continue
			}
			cv := curr[key]
			iv, present := inter[key]
			if !present || document.IsAbsent(cv) || document.IsAbsent(iv) {
				continue
			}
			sets = append(sets, scalarDiffs(cv, iv, p.Child(document.Field(key)))...)
		}
		return sets

	case []any:
		inter, ok := intermediate.([]any)
		if !ok {
			return nil
		}
		if document.HasKeyedItems(curr) || document.HasKeyedItems(inter) {
			var sets []patch.Operation
			for i, cv := range curr {
				key := document.ItemKey(cv)
				if key == "" {
					if i < len(inter) {
						sets = append(sets, scalarDiffs(cv, inter[i], p.Child(document.Index(i)))...)
					}
					continue
				}
				idx := document.IndexOfKey(inter, key)
				if idx < 0 {
					continue
				}
				sets = append(sets, scalarDiffs(cv, inter[idx], p.Child(document.Key(key)))...)
			}
			return sets
		}
		var sets []patch.Operation
		for i, cv := range curr {
			if i >= len(inter) {
				break
			}
			sets = append(sets, scalarDiffs(cv, inter[i], p.Child(document.Index(i)))...)
		}
		return sets

	default:
		if !document.SameShape(current, intermediate) {
			return nil
		}
		if !document.Equal(current, intermediate) {
			return []patch.Operation{patch.Set(p, document.Clone(current))}
		}
		return nil
	}
}
