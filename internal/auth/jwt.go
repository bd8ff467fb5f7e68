// internal/auth/jwt.go
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

const tokenTTL = 24 * time.Hour

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the HS256 bearer tokens bound to a user
// id.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: tokenTTL}
}

func (m *TokenManager) Issue(userID int64, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "failed to sign token", err)
	}
	return token, nil
}

// Verify checks signature and expiry and returns the user id the token is
// bound to.
func (m *TokenManager) Verify(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.CodeUnauthenticated, "unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUnauthenticated, "invalid or expired token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, apperr.New(apperr.CodeUnauthenticated, "invalid token claims")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUnauthenticated, "malformed token subject", err)
	}
	return userID, nil
}
