package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "referral_service/internal/lib/api/response"
	sl "referral_service/internal/lib/logger"
	"referral_service/internal/referral"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Username     string `json:"username" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Pass         string `json:"password" validate:"required"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type Response struct {
	resp.Response
	Message      string `json:"message"`
	ReferralCode string `json:"referral_code"`
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	service *referral.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		referralCode, err := service.Register(ctx, req.Username, req.Email, req.Pass, req.ReferralCode)
		if err != nil {
			if errors.Is(err, referral.ErrDuplicateEmail) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Email already in use"))

				return
			}
			if errors.Is(err, referral.ErrInvalidReferralCode) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid referral code"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User registered")

		ResponseOK(w, r, referralCode)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, referralCode string) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Response:     resp.OK(),
		Message:      "User registered successfully",
		ReferralCode: referralCode,
	})
}
