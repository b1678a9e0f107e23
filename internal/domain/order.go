package domain

import (
	"strings"

	"paranoid/internal/core/apperror"
	"paranoid/internal/domain/filter"
)

// Order is a parsed ListFilter.OrderBy.
type Order struct {
	Field string
	Desc  bool
}

// ParseOrderBy accepts "", "field", "+field" or "-field". The field must be one
// of columns; an empty value orders by id ascending.
func ParseOrderBy(orderBy string, columns []string) (Order, error) {
	if orderBy == "" {
		return Order{Field: "id"}, nil
	}

	var o Order
	field := orderBy
	switch {
	case strings.HasPrefix(orderBy, "-"):
		o.Desc = true
		field = orderBy[1:]
	case strings.HasPrefix(orderBy, "+"):
		field = orderBy[1:]
	}
	o.Field = strings.TrimSpace(field)

	for _, col := range columns {
		if col == o.Field {
			return o, nil
		}
	}
	return Order{}, apperror.NewValidation("invalid orderBy").
		WithDetail("orderBy", orderBy).
		WithDetail("field", o.Field)
}

// CheckFields rejects conditions on fields outside columns.
func CheckFields(conds []filter.Item, columns []string) error {
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		known[col] = true
	}
	for _, c := range conds {
		if !known[c.Field] {
			return apperror.NewValidation("unknown field").WithDetail("field", c.Field)
		}
	}
	return nil
}
