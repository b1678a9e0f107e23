package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundIsDetectedThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load article: %w", NewNotFound("Article", "42"))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsOperationFailed(err))

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Article", appErr.Details["entity"])
	assert.Equal(t, "42", appErr.Details["id"])
}

func TestOperationFailedKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewOperationFailed("delete", "User", "7").WithCause(cause)

	assert.True(t, IsOperationFailed(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "OPERATION_FAILED: delete User failed (caused by: connection reset)", err.Error())
}

func TestWithDetailInitialisesMap(t *testing.T) {
	err := NewValidation("bad input").WithDetail("field", "title")

	assert.True(t, IsValidation(err))
	assert.Equal(t, map[string]any{"field": "title"}, err.Details)
}

func TestPlainErrorHasNoCode(t *testing.T) {
	err := errors.New("boom")

	assert.False(t, IsAppError(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsConstraintViolation(err))
}
