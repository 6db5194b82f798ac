package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCodeThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "record missing")
	wrapped := fmt.Errorf("loading record: %w", base)

	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeUnauthorized))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "store unavailable")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAddAndLoadAttributes(t *testing.T) {
	err := New(CodeConflict, "identifier collision").Add("id", "0xabc")

	attrs := Load(fmt.Errorf("create: %w", err))
	require.Len(t, attrs, 2)
	assert.Equal(t, "id", attrs[0])

	assert.Nil(t, Load(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeConflict, http.StatusConflict},
		{CodeInvariantViolation, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{Code("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.code), string(tt.code))
	}
}
