package memory

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"paranoid/internal/core/apperror"
	"paranoid/internal/domain/filter"
)

// matches evaluates all conditions against a column map. Conditions are ANDed.
func matches(row map[string]any, conds []filter.Item) (bool, error) {
	for _, c := range conds {
		ok, err := matchItem(row, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchItem(row map[string]any, c filter.Item) (bool, error) {
	raw, ok := row[c.Field]
	if !ok {
		return false, apperror.NewValidation("unknown field").WithDetail("field", c.Field)
	}
	v := normalize(raw)

	switch c.Operator {
	case filter.IsNull:
		return v == nil, nil
	case filter.IsNotNull:
		return v != nil, nil
	case filter.Equal, "":
		return v != nil && equal(v, normalize(c.Value)), nil
	case filter.NotEqual:
		return v != nil && !equal(v, normalize(c.Value)), nil
	case filter.InList, filter.NotInList:
		found := false
		for _, want := range listValues(c.Value) {
			if v != nil && equal(v, want) {
				found = true
				break
			}
		}
		if c.Operator == filter.InList {
			return found, nil
		}
		return v != nil && !found, nil
	case filter.Contains, filter.NotContains:
		if v == nil {
			return false, nil
		}
		has := strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(fmt.Sprint(c.Value)))
		return has == (c.Operator == filter.Contains), nil
	case filter.Less, filter.LessOrEqual, filter.Greater, filter.GreaterOrEqual:
		if v == nil {
			return false, nil
		}
		cmp, ok := compare(v, normalize(c.Value))
		if !ok {
			return false, apperror.NewValidation("values are not comparable").WithDetail("field", c.Field)
		}
		switch c.Operator {
		case filter.Less:
			return cmp < 0, nil
		case filter.LessOrEqual:
			return cmp <= 0, nil
		case filter.Greater:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}
	return false, apperror.NewValidation("unsupported operator").WithDetail("operator", string(c.Operator))
}

// normalize unwraps pointers and renders ids as strings so that a uuid
// column compares equal to its string form, as it does in SQL.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return t.String()
	case *uuid.UUID:
		if t == nil {
			return nil
		}
		return t.String()
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case *string:
		if t == nil {
			return nil
		}
		return *t
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}

func listValues(v any) []any {
	if _, ok := v.(uuid.UUID); ok {
		return []any{normalize(v)}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{normalize(v)}
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, normalize(rv.Index(i).Interface()))
	}
	return out
}

func equal(a, b any) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two normalized values. ok is false when they have no common order.
func compare(a, b any) (int, bool) {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}

	af, okA := toFloat64(a)
	bf, okB := toFloat64(b)
	if okA && okB {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}

	as, okA := a.(string)
	bs, okB := b.(string)
	if okA && okB {
		return strings.Compare(as, bs), true
	}

	ab, okA := a.(bool)
	bb, okB := b.(bool)
	if okA && okB {
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		}
		return 1, true
	}

	return 0, false
}

func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
