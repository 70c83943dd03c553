package authn_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral_service/internal/http_server/middleware/authn"
	"referral_service/internal/lib/jwt"
)

const secret = "test-secret"

func wrapped(t *testing.T, subjectSeen *string) http.Handler {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authn.ClaimsFromContext(r.Context())
		require.True(t, ok)
		*subjectSeen = claims.Subject
	})

	return authn.New(log, secret)(next)
}

func TestAuthn(t *testing.T) {
	t.Run("valid cookie passes typed claims through", func(t *testing.T) {
		var subject string
		h := wrapped(t, &subject)

		token, err := jwt.NewSessionToken("alice@example.com", time.Hour, secret)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/referrals", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: "Bearer " + token})
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice@example.com", subject)
	})

	t.Run("missing cookie", func(t *testing.T) {
		var subject string
		h := wrapped(t, &subject)

		req := httptest.NewRequest(http.MethodGet, "/referrals", nil)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, subject)
	})

	t.Run("garbage token", func(t *testing.T) {
		var subject string
		h := wrapped(t, &subject)

		req := httptest.NewRequest(http.MethodGet, "/referrals", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: "Bearer garbage"})
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, subject)
	})

	t.Run("expired token", func(t *testing.T) {
		var subject string
		h := wrapped(t, &subject)

		token, err := jwt.NewSessionToken("alice@example.com", -time.Minute, secret)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/referrals", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: "Bearer " + token})
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, subject)
	})
}
