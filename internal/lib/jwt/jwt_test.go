package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral_service/internal/lib/jwt"
)

const secret = "test-secret"

func TestSessionToken(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		token, err := jwt.NewSessionToken("alice@example.com", time.Hour, secret)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := jwt.ParseSessionToken(token, secret)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", claims.Subject)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := jwt.NewSessionToken("alice@example.com", -time.Minute, secret)
		require.NoError(t, err)

		_, err = jwt.ParseSessionToken(token, secret)
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := jwt.NewSessionToken("alice@example.com", time.Hour, secret)
		require.NoError(t, err)

		_, err = jwt.ParseSessionToken(token, "other-secret")
		require.Error(t, err)
	})

	t.Run("malformed input is an error, not a panic", func(t *testing.T) {
		for _, bad := range []string{"", "garbage", "a.b.c", "Bearer whatever"} {
			_, err := jwt.ParseSessionToken(bad, secret)
			assert.Error(t, err, "input %q", bad)
		}
	})
}

func TestNewResetToken(t *testing.T) {
	t.Run("unguessable and distinct", func(t *testing.T) {
		a, err := jwt.NewResetToken()
		require.NoError(t, err)

		b, err := jwt.NewResetToken()
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		assert.Len(t, a, 43, "32 random bytes, base64url without padding")
	})
}
