package patch

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-tms/internal/document"
)

// ErrPathUnresolvable indicates an operation's path does not fit the shape of
// the base document it is being applied to.
var ErrPathUnresolvable = errors.New("patch: path unresolvable against base document")

// Apply replays operations against a base document and returns the resulting
// state. The base is never mutated; operations are applied as one batch, so a
// failed application leaves no observable intermediate state. Paths untouched
// by the operation list are carried over bit-identical from the base.
func Apply(base document.Document, ops []Operation) (document.Document, error) {
	result := document.Clone(base)
	if result == nil {
		result = document.Document{}
	}
	for _, op := range ops {
		if err := applyOne(result, op); err != nil {
			return nil, fmt.Errorf("applying %s at %q: %w", op.Kind, op.Path.String(), err)
		}
	}
	return result, nil
}

func applyOne(root document.Document, op Operation) error {
	if op.Path.IsEmpty() {
		return applyRoot(root, op)
	}
	updated, err := place(any(root), op.Path, op)
	if err != nil {
		return err
	}
	if _, ok := updated.(map[string]any); !ok {
		return ErrPathUnresolvable
	}
	return nil
}

// applyRoot handles whole-document operations without disturbing the map the
// caller owns.
func applyRoot(root document.Document, op Operation) error {
	switch op.Kind {
	case KindUnset:
		for k := range root {
			delete(root, k)
		}
		return nil
	default:
		value, ok := op.Value.(map[string]any)
		if !ok {
			return ErrPathUnresolvable
		}
		for k := range root {
			delete(root, k)
		}
		for k, v := range value {
			root[k] = document.Clone(v)
		}
		return nil
	}
}

// place walks the path, mutating containers in place and re-linking arrays
// whose length changed. It returns the (possibly replaced) current value.
func place(current any, path document.Path, op Operation) (any, error) {
	head := path[0]
	last := len(path) == 1

	switch head.Kind {
	case document.SegmentField:
		obj, ok := current.(map[string]any)
		if !ok {
			if !document.IsAbsent(current) || op.Kind == KindUnset {
				return current, errorUnlessUnset(op)
			}
			obj = map[string]any{}
		}
		if last {
			if op.Kind == KindUnset {
				delete(obj, head.Field)
			} else {
				obj[head.Field] = document.Clone(op.Value)
			}
			return obj, nil
		}
		existing, present := obj[head.Field]
		child, err := place(existing, path[1:], op)
		if err != nil {
			return obj, err
		}
		if present || !document.IsAbsent(child) {
			obj[head.Field] = child
		}
		return obj, nil

	case document.SegmentIndex, document.SegmentKey:
		arr, ok := current.([]any)
		if !ok {
			if !document.IsAbsent(current) || op.Kind == KindUnset {
				return current, errorUnlessUnset(op)
			}
			arr = []any{}
		}
		if last {
			return applyToArray(arr, head, op), nil
		}
		idx := resolveIndex(arr, head)
		if idx < 0 {
			return arr, errorUnlessUnset(op)
		}
		child, err := place(arr[idx], path[1:], op)
		if err != nil {
			return arr, err
		}
		arr[idx] = child
		return arr, nil
	}
	return current, ErrPathUnresolvable
}

// errorUnlessUnset lets removals of already-missing values pass silently;
// anything else is a genuine shape mismatch.
func errorUnlessUnset(op Operation) error {
	if op.Kind == KindUnset {
		return nil
	}
	return ErrPathUnresolvable
}

func resolveIndex(arr []any, seg document.Segment) int {
	if seg.Kind == document.SegmentKey {
		return document.IndexOfKey(arr, seg.Key)
	}
	if seg.Index >= 0 && seg.Index < len(arr) {
		return seg.Index
	}
	return -1
}

// applyToArray performs the terminal array mutation for an operation whose
// last segment addresses an array item.
func applyToArray(arr []any, seg document.Segment, op Operation) []any {
	existing := resolveIndex(arr, seg)

	switch op.Kind {
	case KindUnset:
		if existing < 0 {
			return arr
		}
		return append(arr[:existing:existing], arr[existing+1:]...)

	case KindInsert:
		if op.Insert != nil {
			return insertPositioned(arr, seg, op)
		}
		fallthrough

	default: // KindSet, or insert without positional metadata
		if existing >= 0 {
			arr[existing] = document.Clone(op.Value)
			return arr
		}
		return append(arr, document.Clone(op.Value))
	}
}

// insertPositioned places the item adjacent to the named sibling identity,
// next winning over prev, with the numeric index as last resort. Re-inserting
// an item that is already present replaces it in place, which keeps replaying
// the same operation list idempotent.
func insertPositioned(arr []any, seg document.Segment, op Operation) []any {
	if existing := resolveIndex(arr, seg); existing >= 0 {
		arr[existing] = document.Clone(op.Value)
		return arr
	}

	at := len(arr)
	switch {
	case op.Insert.Next != "" && document.IndexOfKey(arr, op.Insert.Next) >= 0:
		at = document.IndexOfKey(arr, op.Insert.Next)
	case op.Insert.Prev != "" && document.IndexOfKey(arr, op.Insert.Prev) >= 0:
		at = document.IndexOfKey(arr, op.Insert.Prev) + 1
	case op.Insert.Index >= 0 && op.Insert.Index <= len(arr):
		at = op.Insert.Index
	}

	out := make([]any, 0, len(arr)+1)
	out = append(out, arr[:at]...)
	out = append(out, document.Clone(op.Value))
	out = append(out, arr[at:]...)
	return out
}
