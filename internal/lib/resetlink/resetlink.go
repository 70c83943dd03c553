package resetlink

import (
	"context"
	"fmt"
	"log/slog"

	"referral_service/internal/models"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

// SendResetEmail hands the reset token to the email delivery queue. The token
// must reach the user only through this path, never through an HTTP response.
func SendResetEmail(
	ctx context.Context,
	log *slog.Logger,
	pub Publisher,
	baseURL, email, token string,
) error {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", baseURL, token)

	msg := models.EmailMessage{
		Email:   email,
		Link:    resetLink,
		Subject: "Password Reset Request",
	}

	if err := pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish reset email", slog.Any("err", err))

		return err
	}

	return nil
}
