package patch

import "github.com/goliatone/go-tms/internal/document"

// Kind discriminates the three operation variants a diff can produce.
type Kind string

const (
	// KindUnset removes the value at path.
	KindUnset Kind = "unset"
	// KindInsert introduces a value that did not exist in the historic
	// version. Array-item inserts carry positional metadata; inserts without
	// it behave like KindSet.
	KindInsert Kind = "insert"
	// KindSet replaces a scalar-different value present in both versions.
	KindSet Kind = "set"
)

// InsertAt positions an inserted array item relative to its sibling
// identities in the current document. Next takes precedence over Prev when
// both are known; Index is the fallback when neither sibling is keyed.
type InsertAt struct {
	Index int    `json:"index"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// Operation is one step of a document transformation. Value carries the
// current-version value for insert and set operations so a list of operations
// is self-contained and can be replayed against any base.
type Operation struct {
	Kind   Kind          `json:"kind"`
	Path   document.Path `json:"path"`
	Value  any           `json:"value,omitempty"`
	Insert *InsertAt     `json:"insertAt,omitempty"`
}

// Unset builds a removal operation.
func Unset(path document.Path) Operation {
	return Operation{Kind: KindUnset, Path: path}
}

// Set builds a replacement operation.
func Set(path document.Path, value any) Operation {
	return Operation{Kind: KindSet, Path: path, Value: value}
}

// Insert builds an insertion operation, optionally positioned.
func Insert(path document.Path, value any, at *InsertAt) Operation {
	return Operation{Kind: KindInsert, Path: path, Value: value, Insert: at}
}

// Paths lists the path of every operation, in order.
func Paths(ops []Operation) []document.Path {
	out := make([]document.Path, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Path)
	}
	return out
}

// Dedupe removes operations whose path was already claimed by an earlier
// operation. First occurrence wins.
func Dedupe(ops []Operation) []Operation {
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		duplicate := false
		for _, kept := range out {
			if kept.Path.Equal(op.Path) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, op)
		}
	}
	return out
}
