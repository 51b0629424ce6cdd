package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := Clone(ErrNotFound, "school not found")
	assert.Same(t, typed, FromError(typed))

	internal := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.True(t, errors.Is(internal, sql.ErrConnDone))
}

func TestCloneKeepsOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "weekly quota must be positive")
	assert.Equal(t, "weekly quota must be positive", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, ErrValidation.Message, Clone(ErrValidation, "").Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestIs(t *testing.T) {
	wrapped := Wrap(sql.ErrNoRows, ErrNotFound.Code, http.StatusNotFound, "version not found")
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(sql.ErrNoRows, ErrNotFound))
	assert.Equal(t, "version not found: sql: no rows in result set", wrapped.Error())
}

func TestStdlibIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("load version: %w", Clone(ErrNotFound, "version not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestWithDetailsCopies(t *testing.T) {
	detailed := ErrUnprocessable.WithDetails("no days", "no slots")
	assert.Equal(t, []string{"no days", "no slots"}, detailed.Details)
	assert.Empty(t, ErrUnprocessable.Details)
	assert.Equal(t, ErrUnprocessable.Code, detailed.Code)
}
