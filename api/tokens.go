package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"tierledger/models"
)

// ErrInvalidAccessToken is returned for any token that fails to verify
var ErrInvalidAccessToken = errors.New("invalid access token")

type accessClaims struct {
	ID   int64       `json:"id"`
	Role models.Role `json:"role"`
	jwt.StandardClaims
}

// TokenIssuer signs and verifies HS256 access tokens carrying the account id
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue returns a signed token for the account and its expiry time
func (t *TokenIssuer) Issue(account *models.Account) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.expiry)
	claims := &accessClaims{
		ID:   account.ID,
		Role: account.Role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns the account id it was issued for
func (t *TokenIssuer) Parse(raw string) (int64, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid || claims.ID <= 0 {
		return 0, ErrInvalidAccessToken
	}
	return claims.ID, nil
}
