package referralStats

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "referral_service/internal/lib/api/response"
	sl "referral_service/internal/lib/logger"
	"referral_service/internal/http_server/middleware/authn"
	"referral_service/internal/referral"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	TotalReferrals      int64 `json:"total_referrals"`
	SuccessfulReferrals int64 `json:"successful_referrals"`
}

// ByEmail reports referral counts for the email given in the path.
func ByEmail(log *slog.Logger, service *referral.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.referralStats.ByEmail"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		serve(w, r, log, service, chi.URLParam(r, "email"))
	}
}

// BySession reports referral counts for the authenticated session subject.
func BySession(log *slog.Logger, service *referral.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.referralStats.BySession"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := authn.ClaimsFromContext(r.Context())
		if !ok {
			log.Warn("no session claims in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		serve(w, r, log, service, claims.Subject)
	}
}

func serve(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
	service *referral.Service,
	email string,
) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats, err := service.ReferralStats(ctx, email)
	if err != nil {
		if errors.Is(err, referral.ErrUserNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("User not found"))

			return
		}

		log.Error("failed to count referrals", sl.Err(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp.Error("Internal error"))

		return
	}

	render.JSON(w, r, Response{
		Response:            resp.OK(),
		TotalReferrals:      stats.Total,
		SuccessfulReferrals: stats.Successful,
	})
}
