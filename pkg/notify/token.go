package notify

import (
	"encoding/json"
	"fmt"
)

// WrappedListKey is the map key under which a stored token collection keeps
// its tokens, e.g. {"@type": "ModelToken", "@list": ["a", "b"]}.
const WrappedListKey = "@list"

// Wrapped is a token collection object exposing its tokens through an
// accessor instead of being a raw list.
type Wrapped interface {
	Value() []string
}

// TokenValue is either a single token or a list of tokens.
// The zero value is an empty list.
type TokenValue struct {
	single string
	many   []string
	isOne  bool
}

// Single wraps one token.
func Single(token string) TokenValue {
	return TokenValue{single: token, isOne: true}
}

// Many wraps a list of tokens.
func Many(tokens []string) TokenValue {
	return TokenValue{many: tokens}
}

// IsSingle reports whether the value was built from a scalar token.
func (v TokenValue) IsSingle() bool {
	return v.isOne
}

// Tokens flattens the value into a list. Empty strings are dropped.
func (v TokenValue) Tokens() []string {
	if v.isOne {
		if v.single == "" {
			return nil
		}
		return []string{v.single}
	}
	out := make([]string, 0, len(v.many))
	for _, t := range v.many {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TokenValueOf converts any of the three legal token shapes into a
// TokenValue: a string, a list of strings, or a wrapped collection (a Wrapped
// implementation or a map holding the list under WrappedListKey).
// It reports false when raw has none of those shapes.
func TokenValueOf(raw any) (TokenValue, bool) {
	switch v := raw.(type) {
	case string:
		return Single(v), true
	case []string:
		return Many(v), true
	case []any:
		return manyFromAny(v)
	case Wrapped:
		return Many(v.Value()), true
	case map[string]any:
		list, ok := v[WrappedListKey]
		if !ok {
			return TokenValue{}, false
		}
		switch l := list.(type) {
		case []string:
			return Many(l), true
		case []any:
			return manyFromAny(l)
		}
	}
	return TokenValue{}, false
}

func manyFromAny(items []any) (TokenValue, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return TokenValue{}, false
		}
		out = append(out, s)
	}
	return Many(out), true
}

func (v TokenValue) MarshalJSON() ([]byte, error) {
	if v.isOne {
		return json.Marshal(v.single)
	}
	if v.many == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.many)
}

func (v *TokenValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tv, ok := TokenValueOf(raw)
	if !ok {
		return fmt.Errorf("tokens must be a string, a list of strings or a token collection")
	}
	*v = tv
	return nil
}
