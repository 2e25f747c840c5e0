// Package fieldpath resolves field paths such as "profile.tokens",
// `meta["a.b"]` or "devices[0].token" inside a document.
package fieldpath

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var errMalformed = errors.New("malformed field path")

// Segment is one step of a parsed path: a map key, or a list index when
// IsIndex is set.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Parse splits path into segments.
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty", errMalformed)
	}

	var segs []Segment
	var cur strings.Builder
	// pending is true while cur holds an unterminated dotted key.
	pending := false
	flush := func() error {
		if !pending {
			return nil
		}
		if cur.Len() == 0 {
			return fmt.Errorf("%w: empty key in %q", errMalformed, path)
		}
		segs = append(segs, Segment{Key: cur.String()})
		cur.Reset()
		pending = false
		return nil
	}

	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '.':
			if i > 0 && path[i-1] == ']' {
				// "a[0].b": the dot after a bracket starts a new key.
				pending = true
				continue
			}
			if !pending {
				return nil, fmt.Errorf("%w: leading dot in %q", errMalformed, path)
			}
			if err := flush(); err != nil {
				return nil, err
			}
			pending = true
		case '[':
			if err := flush(); err != nil {
				return nil, err
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed bracket in %q", errMalformed, path)
			}
			seg, err := bracket(path[i+1 : i+end])
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			i += end
		default:
			pending = true
			cur.WriteByte(c)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return segs, nil
}

func bracket(inner string) (Segment, error) {
	if n := len(inner); n >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[n-1] == inner[0] {
		return Segment{Key: inner[1 : n-1]}, nil
	}
	idx, err := strconv.Atoi(inner)
	if err != nil || idx < 0 {
		return Segment{}, fmt.Errorf("%w: bad index %q", errMalformed, inner)
	}
	return Segment{Index: idx, IsIndex: true}, nil
}

// Get returns the value at path, or false when any segment is absent or the
// path is malformed. A plain key that exists verbatim in the document (dots
// included) wins over its dotted interpretation.
func Get(doc map[string]any, path string) (any, bool) {
	if doc == nil {
		return nil, false
	}
	if v, ok := doc[path]; ok {
		return v, true
	}
	segs, err := Parse(path)
	if err != nil {
		return nil, false
	}
	var cur any = doc
	for _, seg := range segs {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(cur any, seg Segment) (any, bool) {
	if seg.IsIndex {
		switch list := cur.(type) {
		case []any:
			if seg.Index >= len(list) {
				return nil, false
			}
			return list[seg.Index], true
		case []string:
			if seg.Index >= len(list) {
				return nil, false
			}
			return list[seg.Index], true
		}
		rv := reflect.ValueOf(cur)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			if seg.Index >= rv.Len() {
				return nil, false
			}
			return rv.Index(seg.Index).Interface(), true
		}
		return nil, false
	}

	switch m := cur.(type) {
	case map[string]any:
		v, ok := m[seg.Key]
		return v, ok
	case map[string]string:
		v, ok := m[seg.Key]
		return v, ok
	}
	return nil, false
}
