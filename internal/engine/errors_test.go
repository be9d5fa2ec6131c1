package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputError_Error(t *testing.T) {
	err := newLengthError("opinions", 3, 4)
	assert.Equal(t, "LENGTH_MISMATCH: opinions has length 3, expected 4", err.Error())
	assert.Equal(t, "3", err.Details["got"])
}

func TestInputError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("round 7: %w", &InputError{Code: ErrCodeEmptyGroup, Message: "subgroup 1 is empty"})

	assert.True(t, IsInputError(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeEmptyGroup))
	assert.False(t, HasCode(wrapped, ErrCodeNoGroups))
	assert.Equal(t, ErrCodeEmptyGroup, CodeOf(wrapped))
}

func TestInputError_OtherErrors(t *testing.T) {
	err := errors.New("boom")
	assert.False(t, IsInputError(err))
	assert.False(t, HasCode(err, ErrCodeLengthMismatch))
	assert.Equal(t, InputErrorCode(""), CodeOf(err))
	assert.False(t, IsInputError(nil))
}
