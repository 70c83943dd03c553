package jwt

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionPurpose = "session"

// Claims is the typed result of a verified session token.
type Claims struct {
	Subject string
}

// NewSessionToken issues a signed HS256 token carrying the user's email as subject.
func NewSessionToken(email string, ttl time.Duration, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     email,
		"purpose": sessionPurpose,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// ParseSessionToken verifies signature, purpose and expiry. It never panics on
// malformed input, a bad token is just an error.
func ParseSessionToken(tokenStr, secret string) (Claims, error) {
	const op = "jwt.ParseSessionToken"

	claims := jwt.MapClaims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%s: failed to parse token: %w", op, err)
	}

	if !parsedToken.Valid {
		return Claims{}, fmt.Errorf("%s: invalid token", op)
	}

	if purpose, ok := claims["purpose"].(string); !ok || purpose != sessionPurpose {
		return Claims{}, fmt.Errorf("%s: invalid token purpose", op)
	}

	if expFloat, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(expFloat) {
			return Claims{}, fmt.Errorf("%s: token expired", op)
		}
	} else {
		return Claims{}, fmt.Errorf("%s: missing exp claim", op)
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%s: missing sub claim", op)
	}

	return Claims{Subject: sub}, nil
}

// NewResetToken returns an unguessable opaque token for password resets.
func NewResetToken() (string, error) {
	const op = "jwt.NewResetToken"

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
