package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneStillMatchesCode(t *testing.T) {
	err := Clone(ErrAlreadyMarked, "already checked in")
	assert.True(t, errors.Is(err, ErrAlreadyMarked))
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.Equal(t, "already checked in", err.Error())

	wrapped := fmt.Errorf("redeem: %w", err)
	assert.True(t, errors.Is(wrapped, ErrAlreadyMarked))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)

	typed := FromError(fmt.Errorf("ctx: %w", ErrCodeMismatch))
	assert.Equal(t, ErrCodeMismatch.Code, typed.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, typed.Status)
}
