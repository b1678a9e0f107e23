// Package filter describes ordinary (non-marker) predicates.
// Both read paths translate the same Items; only the marker clause differs between them.
package filter

import "fmt"

// ComparisonType defines a comparison kind.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	LessOrEqual    ComparisonType = "lte"
	Greater        ComparisonType = "gt"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"  // ILIKE %val%
	NotContains    ComparisonType = "ncontains" // NOT ILIKE %val%
	IsNull         ComparisonType = "null"
	IsNotNull      ComparisonType = "not_null"
)

// Item is a single predicate.
type Item struct {
	Field    string         `json:"field"`    // column name (snake_case)
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"` // scalar, or slice for in/nin
}

func (i Item) String() string {
	switch i.Operator {
	case IsNull, IsNotNull:
		return fmt.Sprintf("%s %s", i.Field, i.Operator)
	}
	return fmt.Sprintf("%s %s %v", i.Field, i.Operator, i.Value)
}

// Eq is shorthand for an equality predicate.
func Eq(field string, value any) Item {
	return Item{Field: field, Operator: Equal, Value: value}
}

// In is shorthand for a membership predicate.
func In(field string, values any) Item {
	return Item{Field: field, Operator: InList, Value: values}
}

// Like is shorthand for a case-insensitive substring predicate.
func Like(field, substr string) Item {
	return Item{Field: field, Operator: Contains, Value: substr}
}
