package account

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := newError(KindNotFound, "GetAccountByID")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, fmt.Errorf("handler: %w", err), ErrNotFound)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConfiguration, KindOf(newErrorMsg(KindConfiguration, "op", "x")))
	assert.Equal(t, KindTokenExpired, KindOf(fmt.Errorf("wrapped: %w", ErrTokenExpired)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "account not found", ErrNotFound.Error())
	assert.Equal(t, "account.Authenticate: invalid credentials", newError(KindInvalidCredentials, "Authenticate").Error())
	assert.Equal(t, "account.EnsureAdminExists: configuration error: missing password",
		newErrorMsg(KindConfiguration, "EnsureAdminExists", "missing password").Error())
}

func TestKind_String(t *testing.T) {
	for k := KindUnknown; k <= KindInvalidInput; k++ {
		assert.NotEmpty(t, k.String())
	}
	assert.Equal(t, "unknown error", Kind(99).String())
}
