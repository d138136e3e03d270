package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// KeyField is the reserved field carrying the stable identity of array items.
const KeyField = "_key"

// ErrSegmentInvalid indicates a path segment could not be decoded.
var ErrSegmentInvalid = errors.New("document: invalid path segment")

// SegmentKind discriminates the three shapes a path segment can take.
type SegmentKind int

const (
	// SegmentField addresses an object member by name.
	SegmentField SegmentKind = iota
	// SegmentIndex addresses an array item by position.
	SegmentIndex
	// SegmentKey addresses an array item by its stable `_key` identity.
	SegmentKey
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Field string
	Index int
	Key   string
}

// Field builds an object-member segment.
func Field(name string) Segment {
	return Segment{Kind: SegmentField, Field: name}
}

// Index builds a positional array segment.
func Index(i int) Segment {
	return Segment{Kind: SegmentIndex, Index: i}
}

// Key builds a keyed-array-item segment.
func Key(key string) Segment {
	return Segment{Kind: SegmentKey, Key: key}
}

// Equal reports exact segment equality, kind included.
func (s Segment) Equal(other Segment) bool {
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case SegmentField:
		return s.Field == other.Field
	case SegmentIndex:
		return s.Index == other.Index
	default:
		return s.Key == other.Key
	}
}

func (s Segment) String() string {
	switch s.Kind {
	case SegmentField:
		return s.Field
	case SegmentIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	default:
		return `[_key=="` + s.Key + `"]`
	}
}

// MarshalJSON renders segments in the persisted scope notation: field names as
// strings, indices as numbers, keyed items as {"_key": "..."} objects.
func (s Segment) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SegmentField:
		return json.Marshal(s.Field)
	case SegmentIndex:
		return json.Marshal(s.Index)
	default:
		return json.Marshal(map[string]string{KeyField: s.Key})
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*s = Field(v)
		return nil
	case float64:
		*s = Index(int(v))
		return nil
	case map[string]any:
		key, ok := v[KeyField].(string)
		if !ok || key == "" {
			return fmt.Errorf("%w: %s", ErrSegmentInvalid, string(data))
		}
		*s = Key(key)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrSegmentInvalid, string(data))
	}
}

// Path is a location inside a tree-shaped document. The empty path addresses
// the whole document.
type Path []Segment

// NewPath builds a path from segments.
func NewPath(segments ...Segment) Path {
	return Path(segments)
}

// IsEmpty reports whether the path addresses the whole document.
func (p Path) IsEmpty() bool {
	return len(p) == 0
}

// Equal reports position-wise segment equality.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if !p[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict, position-wise prefix of other.
func (p Path) IsAncestorOf(other Path) bool {
	if len(p) >= len(other) {
		return false
	}
	for i := range p {
		if !p[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Intersects reports whether the two paths share a common root prefix, i.e.
// one is a (non-strict) prefix of the other. Empty paths never intersect;
// whole-document overlap is the caller's rule, not a path property.
func (p Path) Intersects(other Path) bool {
	if len(p) == 0 || len(other) == 0 {
		return false
	}
	shorter := p
	if len(other) < len(shorter) {
		shorter = other
	}
	longer := other
	if len(other) < len(p) {
		longer = p
	}
	for i := range shorter {
		if !shorter[i].Equal(longer[i]) {
			return false
		}
	}
	return true
}

// Child returns a new path with segment appended. The receiver is not shared.
func (p Path) Child(segment Segment) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, segment)
}

// Parent returns the path without its last segment, nil for the empty path.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment. Calling Last on an empty path is a bug.
func (p Path) Last() Segment {
	return p[len(p)-1]
}

// String renders a compact dotted form for logs and deterministic keys.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, seg := range p {
		if i > 0 && seg.Kind == SegmentField {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// ErrPathInvalid indicates a compact path string could not be decoded.
var ErrPathInvalid = errors.New("document: invalid path")

// ParsePath decodes the compact form produced by Path.String: field names
// joined with dots, positional segments as [N], keyed segments as
// [_key=="..."]. Field names containing '.', '[' or ']' do not survive the
// compact form; use the JSON notation for those. The empty string decodes to
// the empty path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, nil
	}
	var p Path
	i := 0
	dot := false
	for i < len(s) {
		switch s[i] {
		case '.':
			if dot || len(p) == 0 {
				return nil, fmt.Errorf("%w: unexpected %q in %q", ErrPathInvalid, '.', s)
			}
			dot = true
			i++
		case '[':
			if dot {
				return nil, fmt.Errorf("%w: field name expected after %q in %q", ErrPathInvalid, '.', s)
			}
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated bracket in %q", ErrPathInvalid, s)
			}
			seg, err := parseBracket(s[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("%w: %v in %q", ErrPathInvalid, err, s)
			}
			p = append(p, seg)
			i += end + 1
		case ']':
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrPathInvalid, ']', s)
		default:
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' && s[j] != ']' {
				j++
			}
			p = append(p, Field(s[i:j]))
			i = j
			dot = false
		}
	}
	if dot {
		return nil, fmt.Errorf("%w: trailing %q in %q", ErrPathInvalid, '.', s)
	}
	return p, nil
}

func parseBracket(inner string) (Segment, error) {
	if rest, ok := strings.CutPrefix(inner, KeyField+"=="); ok {
		key, err := strconv.Unquote(rest)
		if err != nil || key == "" {
			return Segment{}, fmt.Errorf("malformed key segment [%s]", inner)
		}
		return Key(key), nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 {
		return Segment{}, fmt.Errorf("malformed index segment [%s]", inner)
	}
	return Index(n), nil
}

// Strings renders a list of paths to their compact forms.
func Strings(paths []Path) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.String())
	}
	return out
}
