package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "referral_service/internal/lib/api/response"
	"referral_service/internal/lib/jwt"
	sl "referral_service/internal/lib/logger"

	"github.com/go-chi/render"
)

// SessionCookie carries the session token as "Bearer <jwt>".
const SessionCookie = "access_token"

type claimsKey struct{}

// New verifies the session cookie and puts typed claims into the request
// context. Requests without a valid session get a 401 and never reach the
// handler.
func New(log *slog.Logger, tokenSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn.New"

			log := log.With(slog.String("op", op))

			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				log.Warn("missing session cookie")

				unauthorized(w, r)

				return
			}

			token := strings.TrimPrefix(cookie.Value, "Bearer ")

			claims, err := jwt.ParseSessionToken(token, tokenSecret)
			if err != nil {
				log.Warn("invalid session token", sl.Err(err))

				unauthorized(w, r)

				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

// ClaimsFromContext returns the claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(jwt.Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error("unauthorized"))
}
