package forgotPassword_test

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

	forgotPassword "referral_service/internal/http_server/handlers/forgot_password"
	resetPassword "referral_service/internal/http_server/handlers/reset_password"
	"referral_service/internal/models"
	"referral_service/internal/referral"
	"referral_service/internal/storage/memory"
)

type capturedPublisher struct {
	messages []models.EmailMessage
}

func (p *capturedPublisher) SendMessage(_ context.Context, msg models.EmailMessage) error {
	p.messages = append(p.messages, msg)
	return nil
}

type fixture struct {
	forgot http.HandlerFunc
	reset  http.HandlerFunc
	svc    *referral.Service
	pub    *capturedPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := referral.New(log, st, st, st, st, st, time.Hour, 15*time.Minute, "test-secret")

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "oldpass", "")
	require.NoError(t, err)

	pub := &capturedPublisher{}
	validate := validator.New()

	return &fixture{
		forgot: forgotPassword.New(log, validate, svc, pub, "http://localhost:8080"),
		reset:  resetPassword.New(log, validate, svc),
		svc:    svc,
		pub:    pub,
	}
}

func post(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	return rec
}

// tokenFromLink digs the reset token out of the published email link, the
// only place it is allowed to appear.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()

	i := strings.Index(link, "token=")
	require.GreaterOrEqual(t, i, 0, "link %q has no token", link)

	return link[i+len("token="):]
}

func TestForgotPassword(t *testing.T) {
	t.Run("queues the reset email without echoing the token", func(t *testing.T) {
		f := newFixture(t)

		rec := post(f.forgot, "/forgot-password", `{"email":"alice@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Password reset link sent")

		require.Len(t, f.pub.messages, 1)
		msg := f.pub.messages[0]
		assert.Equal(t, "alice@example.com", msg.Email)
		assert.Equal(t, "Password Reset Request", msg.Subject)

		token := tokenFromLink(t, msg.Link)
		assert.NotContains(t, rec.Body.String(), token, "token must never reach the HTTP caller")
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)

		rec := post(f.forgot, "/forgot-password", `{"email":"nobody@example.com"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "User not found")
		assert.Empty(t, f.pub.messages)
	})
}

func TestResetPassword(t *testing.T) {
	t.Run("full flow, token is single-use", func(t *testing.T) {
		f := newFixture(t)

		rec := post(f.forgot, "/forgot-password", `{"email":"alice@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, f.pub.messages, 1)

		token := tokenFromLink(t, f.pub.messages[0].Link)

		rec = post(f.reset, "/reset-password", `{"token":"`+token+`","new_password":"newpass"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Password reset successful")

		_, err := f.svc.Login(context.Background(), "alice@example.com", "newpass")
		require.NoError(t, err)

		rec = post(f.reset, "/reset-password", `{"token":"`+token+`","new_password":"again"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid or expired token")
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)

		rec := post(f.reset, "/reset-password", `{"token":"bogus","new_password":"newpass"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid or expired token")
	})
}
