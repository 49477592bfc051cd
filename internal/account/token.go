package account

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
)

// SessionClaims is the claim set carried by a session token.
type SessionClaims struct {
	AccountID string      `json:"accountId"`
	Username  string      `json:"username"`
	Role      entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration, issuer string) (*TokenIssuer, error) {
	const op = "NewTokenIssuer"
	if secret == "" {
		return nil, newErrorMsg(KindConfiguration, op, "JWT_SECRET is not set")
	}
	if ttl <= 0 {
		return nil, newErrorMsg(KindConfiguration, op, "JWT_EXPIRES_IN must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}, nil
}

// Issue signs c with the configured ttl. Registered claims on c are replaced.
func (t *TokenIssuer) Issue(c SessionClaims) (string, time.Time, error) {
	now := t.now()
	claims := SessionClaims{
		AccountID: c.AccountID,
		Username:  c.Username,
		Role:      c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.AccountID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm, issuer and expiry.
func (t *TokenIssuer) Verify(token string) (*SessionClaims, error) {
	const op = "VerifyToken"
	claims := &SessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, newError(KindTokenExpired, op)
		}
		return nil, newError(KindTokenInvalid, op)
	}
	return claims, nil
}
