package account

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer("test-secret", time.Hour, "pitchfork-test")
	require.NoError(t, err)
	return ti
}

func TestNewTokenIssuer_Config(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour, "x")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewTokenIssuer("secret", 0, "x")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := newTestIssuer(t)
	before := time.Now()

	token, exp, err := ti.Issue(SessionClaims{AccountID: "42", Username: "alice", Role: entity.RoleUser})
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(time.Hour), exp, 2*time.Second)

	claims, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.AccountID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, entity.RoleUser, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "pitchfork-test", claims.Issuer)
	assert.True(t, exp.Equal(claims.ExpiresAt.Time))
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti := newTestIssuer(t)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := ti.Issue(SessionClaims{AccountID: "42", Username: "alice", Role: entity.RoleUser})
	require.NoError(t, err)

	ti.now = time.Now
	_, err = ti.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_Invalid(t *testing.T) {
	ti := newTestIssuer(t)
	token, _, err := ti.Issue(SessionClaims{AccountID: "42", Username: "alice", Role: entity.RoleAdmin})
	require.NoError(t, err)

	other, err := NewTokenIssuer("another-secret", time.Hour, "pitchfork-test")
	require.NoError(t, err)
	otherToken, _, err := other.Issue(SessionClaims{AccountID: "42", Username: "alice", Role: entity.RoleAdmin})
	require.NoError(t, err)

	wrongIssuer, err := NewTokenIssuer("test-secret", time.Hour, "someone-else")
	require.NoError(t, err)
	wrongIssuerToken, _, err := wrongIssuer.Issue(SessionClaims{AccountID: "42"})
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, SessionClaims{
		AccountID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "pitchfork-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		AccountID:        "42",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "pitchfork-test"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := map[string]string{
		"other secret": otherToken,
		"wrong issuer": wrongIssuerToken,
		"hs512":        hs512,
		"no expiry":    noExp,
		"tampered":     tampered,
		"garbage":      "not.a.token",
		"empty":        "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ti.Verify(tok)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}
