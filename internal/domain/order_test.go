package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paranoid/internal/core/apperror"
	"paranoid/internal/domain/filter"
)

func TestParseOrderBy(t *testing.T) {
	cols := []string{"id", "title", "created_at"}

	tests := []struct {
		in   string
		want Order
	}{
		{"", Order{Field: "id"}},
		{"title", Order{Field: "title"}},
		{"+title", Order{Field: "title"}},
		{"-created_at", Order{Field: "created_at", Desc: true}},
	}
	for _, tt := range tests {
		got, err := ParseOrderBy(tt.in, cols)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"password", "-", "+-title", "title DESC"} {
		_, err := ParseOrderBy(bad, cols)
		assert.True(t, apperror.IsValidation(err), bad)
	}
}

func TestCheckFields(t *testing.T) {
	cols := []string{"id", "title"}

	assert.NoError(t, CheckFields([]filter.Item{filter.Eq("title", "a")}, cols))
	assert.True(t, apperror.IsValidation(CheckFields([]filter.Item{filter.Eq("body", "a")}, cols)))
}
