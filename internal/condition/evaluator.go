// Package condition evaluates filter conditions against a single document.
package condition

import (
	"cmp"
	"reflect"
	"time"

	"github.com/tinywideclouds/go-notification-engine/internal/fieldpath"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Matches reports whether doc satisfies every condition. An empty list
// always matches.
func Matches(doc map[string]any, conds []notify.Condition) bool {
	for _, c := range conds {
		if !Evaluate(doc, c) {
			return false
		}
	}
	return true
}

// Evaluate applies a single condition to doc. An absent or null field
// fails every operator except isNull, notEquals and notIn included, the
// same way a Firestore query treats missing fields.
func Evaluate(doc map[string]any, c notify.Condition) bool {
	field, present := fieldpath.Get(doc, c.Key)
	isNull := !present || field == nil

	switch c.Op {
	case notify.OpIsNull:
		return isNull
	case notify.OpIsNotNull:
		return !isNull
	}

	if c.Value == nil {
		return false
	}

	switch c.Op {
	case notify.OpEquals:
		return present && equal(field, c.Value)
	case notify.OpNotEquals:
		return !isNull && !equal(field, c.Value)
	case notify.OpLessThan:
		r, ok := compare(field, c.Value)
		return ok && r < 0
	case notify.OpLessOrEqual:
		r, ok := compare(field, c.Value)
		return ok && r <= 0
	case notify.OpGreaterThan:
		r, ok := compare(field, c.Value)
		return ok && r > 0
	case notify.OpGreaterOrEqual:
		r, ok := compare(field, c.Value)
		return ok && r >= 0
	case notify.OpArrayContains:
		list, ok := asList(field)
		return ok && contains(list, c.Value)
	case notify.OpArrayContainsAny:
		list, ok := asList(field)
		if !ok {
			return false
		}
		wanted, ok := asList(c.Value)
		if !ok {
			return false
		}
		for _, w := range wanted {
			if contains(list, w) {
				return true
			}
		}
		return false
	case notify.OpIn:
		set, ok := asList(c.Value)
		return ok && present && contains(set, field)
	case notify.OpNotIn:
		set, ok := asList(c.Value)
		return ok && !isNull && !contains(set, field)
	}
	return false
}

func contains(list []any, v any) bool {
	for _, item := range list {
		if equal(item, v) {
			return true
		}
	}
	return false
}

// equal compares numbers by value regardless of their Go type and lists
// element by element.
func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if la, ok := asList(a); ok {
		lb, ok := asList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// compare orders numbers, strings and times. It reports false when the two
// values have no common ordering.
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return cmp.Compare(fa, fb), true
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return cmp.Compare(va, vb), true
	case time.Time:
		vb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return va.Compare(vb), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
