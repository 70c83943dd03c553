package logout

import (
	"log/slog"
	"net/http"

	resp "referral_service/internal/lib/api/response"
	"referral_service/internal/http_server/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message string `json:"message"`
}

// New clears the session cookie. The server keeps no revocation list, so the
// token itself stays cryptographically valid until its natural expiry.
func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		http.SetCookie(w, &http.Cookie{
			Name:     authn.SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})

		log.Info("user logged out")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Message:  "Logged out successfully",
	})
}
