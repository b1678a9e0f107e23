// Package columns maps record structs to column names through their "db" tags.
// Both storage adapters use it, so a column means the same thing in SQL and in memory.
package columns

import (
	"reflect"
	"sync"
)

// Extract returns all column names from struct "db" tags in declaration order,
// walking embedded structs (BaseEntity, marker types) recursively.
//
// Usage:
//
//	cols := columns.Extract[articles.Article]()
//	// ["id", "created_at", "updated_at", "deleted", "deleted_by_cascade", "title", ...]
func Extract[T any]() []string {
	var zero T
	return extractFromType(reflect.TypeOf(zero))
}

func extractFromType(t reflect.Type) []string {
	meta := typeMetadataOf(t)
	if meta == nil {
		return nil
	}

	var cols []string
	for _, fi := range meta.fields {
		if fi.embedded {
			cols = append(cols, extractFromType(fi.typ)...)
			continue
		}
		cols = append(cols, fi.column)
	}
	return cols
}

// fieldInfo contains pre-computed metadata about a struct field.
type fieldInfo struct {
	index    int
	column   string
	embedded bool
	typ      reflect.Type
}

// typeMetadata contains cached reflection metadata for a type.
type typeMetadata struct {
	fields []fieldInfo
}

var typeCache sync.Map // map[reflect.Type]*typeMetadata

// typeMetadataOf returns cached metadata, computing it on first use. Nil for non-structs.
func typeMetadataOf(t reflect.Type) *typeMetadata {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{fields: make([]fieldInfo, 0, t.NumField())}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous {
			meta.fields = append(meta.fields, fieldInfo{index: i, embedded: true, typ: field.Type})
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, fieldInfo{index: i, column: tag, typ: field.Type})
	}

	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

// ToMap converts a struct (or pointer to struct) to a column -> value map.
// Only fields with a "db" tag are included.
func ToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any)
	fill(rv, res)
	return res
}

func fill(rv reflect.Value, res map[string]any) {
	meta := typeMetadataOf(rv.Type())
	for _, fi := range meta.fields {
		fv := rv.Field(fi.index)
		if fi.embedded {
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				fill(fv, res)
			}
			continue
		}
		res[fi.column] = fv.Interface()
	}
}

// Value returns the value stored under column, or false when v has no such column.
func Value(v any, column string) (any, bool) {
	m := ToMap(v)
	val, ok := m[column]
	return val, ok
}
