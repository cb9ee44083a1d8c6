package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, ErrPasswordMismatch, ErrValidation)
	assert.ErrorIs(t, fmt.Errorf("register: %w", ErrUsernameTaken), ErrValidation)
	assert.NotErrorIs(t, ErrAuth, ErrValidation)

	cause := errors.New("disk full")
	err := WrapStore("insert entry", cause)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)

	assert.NoError(t, WrapStore("noop", nil))
	assert.Same(t, ErrNotFound, WrapStore("get", ErrNotFound))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Passwords do not match.", UserMessage(ErrPasswordMismatch))
	assert.Equal(t, "Invalid username or password.", UserMessage(ErrAuth))
	assert.Equal(t, "Entry not found.", UserMessage(fmt.Errorf("delete: %w", ErrNotFound)))
	msg := UserMessage(WrapStore("insert", errors.New("constraint failed: secret detail")))
	assert.NotContains(t, msg, "secret detail")
}
