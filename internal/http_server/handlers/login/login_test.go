package login_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral_service/internal/http_server/handlers/login"
	"referral_service/internal/http_server/middleware/authn"
	"referral_service/internal/referral"
	"referral_service/internal/storage/memory"
)

func newHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	st := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := referral.New(log, st, st, st, st, st, time.Hour, 15*time.Minute, "test-secret")

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret123", "")
	require.NoError(t, err)

	return login.New(log, validator.New(), svc, time.Hour)
}

func doRequest(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	return rec
}

func TestLoginHandler(t *testing.T) {
	t.Run("sets the session cookie", func(t *testing.T) {
		h := newHandler(t)

		rec := doRequest(t, h, `{"email":"alice@example.com","password":"secret123"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Login successful")

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == authn.SessionCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie, "session cookie not set")

		assert.True(t, strings.HasPrefix(cookie.Value, "Bearer "))
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, 3600, cookie.MaxAge)
	})

	t.Run("wrong password and unknown email get the same response", func(t *testing.T) {
		h := newHandler(t)

		wrongPass := doRequest(t, h, `{"email":"alice@example.com","password":"wrong"}`)
		unknown := doRequest(t, h, `{"email":"nobody@example.com","password":"secret123"}`)

		require.Equal(t, http.StatusBadRequest, wrongPass.Code)
		require.Equal(t, http.StatusBadRequest, unknown.Code)
		assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
		assert.Contains(t, wrongPass.Body.String(), "Invalid credentials")

		assert.Empty(t, wrongPass.Result().Cookies())
	})
}
