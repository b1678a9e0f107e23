package metadata

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	"paranoid/internal/core/entity"
	"paranoid/internal/core/id"
)

var (
	timestampMarkType = reflect.TypeOf(entity.TimestampMark{})
	cascadeMarkType   = reflect.TypeOf(entity.CascadeMark{})
)

// Inspect analyzes a record struct and returns its EntityDef with Name, Label,
// Marker and Fields filled in. Table, Policy and Relations are left to the caller.
func Inspect(record any, name string) EntityDef {
	t := reflect.TypeOf(record)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if name == "" {
		name = t.Name()
	}

	def := EntityDef{
		Name:   name,
		Label:  guessLabel(name),
		Fields: make([]FieldDef, 0),
	}

	inspectStruct(t, &def)

	return def
}

func inspectStruct(t reflect.Type, def *EntityDef) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.PkgPath != "" { // unexported
			continue
		}

		if field.Anonymous {
			switch field.Type {
			case timestampMarkType:
				def.Marker = MarkerTimestamp
			case cascadeMarkType:
				def.Marker = MarkerCascade
			}
			inspectStruct(field.Type, def)
			continue
		}

		column := dbName(field)
		if column == "" {
			continue
		}

		fDef := FieldDef{
			Name:     jsonName(field),
			Column:   column,
			Label:    guessLabel(field.Name),
			Required: isRequired(field),
			ReadOnly: isReadOnly(field),
		}
		mapFieldType(&fDef, field)

		def.Fields = append(def.Fields, fDef)
	}
}

func mapFieldType(def *FieldDef, field reflect.StructField) {
	t := field.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	// Handle ID -> Reference
	if t == reflect.TypeOf(id.ID{}) {
		def.Type = TypeReference
		// "ArticleID" -> "article"
		if field.Name != "ID" && strings.HasSuffix(field.Name, "ID") {
			def.ReferenceType = strings.ToLower(strings.TrimSuffix(field.Name, "ID"))
		}
		return
	}

	if t == reflect.TypeOf(time.Time{}) {
		def.Type = TypeDate
		return
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		def.Type = TypeInteger
	case reflect.Float32, reflect.Float64:
		def.Type = TypeNumber
	case reflect.Bool:
		def.Type = TypeBoolean
	default:
		def.Type = TypeString
	}
}

func dbName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("db")
	if !ok || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

func jsonName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("json"); ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" && parts[0] != "-" {
			return parts[0]
		}
	}
	// Fallback: camelCase
	runes := []rune(field.Name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func isRequired(field reflect.StructField) bool {
	if tag, ok := field.Tag.Lookup("validate"); ok {
		for _, rule := range strings.Split(tag, ",") {
			if rule == "required" {
				return true
			}
		}
	}
	return false
}

func isReadOnly(field reflect.StructField) bool {
	switch dbName(field) {
	case "id", "created_at", "updated_at",
		entity.ColumnDeletedAt, entity.ColumnDeleted, entity.ColumnDeletedByCascade:
		return true
	}
	return false
}

// guessLabel splits CamelCase: "UserLogin" -> "User Login", "ArticleID" -> "Article ID".
func guessLabel(name string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range name {
		if unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
