package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"referral_service/internal/lib/jwt"
	sl "referral_service/internal/lib/logger"
	"referral_service/internal/lib/referralcode"
	"referral_service/internal/models"
	"referral_service/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateEmail      = errors.New("email already in use")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidResetToken   = errors.New("invalid or expired token")
)

// codeAttempts bounds the uniqueness check on generated referral codes. With
// 3 random bytes a collision is already negligible, the loop is a backstop.
const codeAttempts = 5

type Service struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	refSaver    ReferralSaver
	refProvider ReferralProvider
	resetStore  ResetStore
	sessionTTL  time.Duration
	resetTTL    time.Duration
	tokenSecret string
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) (int64, error)
	UpdatePassword(ctx context.Context, email string, passHash []byte) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByReferralCode(ctx context.Context, code string) (models.User, error)
}

type ReferralSaver interface {
	SaveReferral(ctx context.Context, referral models.Referral) error
}

type ReferralProvider interface {
	ReferralsByReferrer(ctx context.Context, referrerID int64) ([]models.ReferredUser, error)
	ReferralStats(ctx context.Context, referrerID int64) (models.ReferralStats, error)
}

type ResetStore interface {
	SaveResetRequest(ctx context.Context, token, email string, ttl time.Duration) error
	ConsumeResetRequest(ctx context.Context, token string) (string, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	referralSaver ReferralSaver,
	referralProvider ReferralProvider,
	resetStore ResetStore,
	sessionTTL, resetTTL time.Duration,
	tokenSecret string,
) *Service {
	return &Service{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		refSaver:    referralSaver,
		refProvider: referralProvider,
		resetStore:  resetStore,
		sessionTTL:  sessionTTL,
		resetTTL:    resetTTL,
		tokenSecret: tokenSecret,
	}
}

// Register creates a user, links it to a referrer when a valid referral code
// is supplied, and returns the new user's own referral code.
func (s *Service) Register(
	ctx context.Context,
	username, email, pass, referralCode string,
) (string, error) {
	const op = "referral.Register"

	log := s.log.With(
		slog.String("op", op),
	)

	log.Info("Registering new user")

	// Early check so the caller gets DuplicateEmail even when the referral
	// code is also bad. The unique index behind SaveUser stays the actual
	// guarantee under concurrent registrations.
	if _, err := s.usrProvider.User(ctx, email); err == nil {
		log.Warn("User already exists")

		return "", ErrDuplicateEmail
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to check email", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	var referrer *models.User

	if referralCode != "" {
		ref, err := s.usrProvider.UserByReferralCode(ctx, referralCode)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				log.Warn("referral code maps to no user")

				return "", ErrInvalidReferralCode
			}

			log.Error("failed to look up referral code", sl.Err(err))

			return "", fmt.Errorf("%s: %w", op, err)
		}

		referrer = &ref
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	newCode, err := s.generateUniqueCode(ctx, email)
	if err != nil {
		log.Error("failed to generate referral code", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PassHash:     passHash,
		ReferralCode: newCode,
		CreatedAt:    time.Now().UTC(),
	}
	if referrer != nil {
		user.ReferredBy = &referrer.Email
	}

	userID, err := s.usrSaver.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")

			return "", ErrDuplicateEmail
		}

		log.Error("Failed to save user", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if referrer != nil {
		entry := models.Referral{
			ReferrerID:     referrer.ID,
			ReferredUserID: userID,
			DateReferred:   time.Now().UTC(),
			Status:         models.ReferralStatusSuccessful,
		}

		// The user record stays even when the ledger insert fails.
		if err := s.refSaver.SaveReferral(ctx, entry); err != nil {
			log.Error("failed to save referral entry", sl.Err(err))
		}
	}

	log.Info("User registered", slog.Int64("id", userID))

	return newCode, nil
}

// Login verifies credentials and returns a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, pass string) (string, error) {
	const op = "referral.Login"

	log := s.log.With(slog.String("op", op))

	user, err := s.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")

			return "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(pass)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return "", ErrInvalidCredentials
	}

	token, err := jwt.NewSessionToken(user.Email, s.sessionTTL, s.tokenSecret)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return token, nil
}

// ForgotPassword creates a single-use reset request and returns its token.
// The caller must route the token to the email delivery queue only.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	const op = "referral.ForgotPassword"

	log := s.log.With(slog.String("op", op))

	if _, err := s.usrProvider.User(ctx, email); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")

			return "", ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := jwt.NewResetToken()
	if err != nil {
		log.Error("failed to generate reset token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.resetStore.SaveResetRequest(ctx, token, email, s.resetTTL); err != nil {
		log.Error("failed to save reset request", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("reset request created")

	return token, nil
}

// ResetPassword consumes a reset token and overwrites the user's password
// hash. Consumption is atomic, a token can be spent exactly once.
func (s *Service) ResetPassword(ctx context.Context, token, newPass string) error {
	const op = "referral.ResetPassword"

	log := s.log.With(slog.String("op", op))

	email, err := s.resetStore.ConsumeResetRequest(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrResetTokenNotFound) {
			log.Warn("reset token not found or expired")

			return ErrInvalidResetToken
		}

		log.Error("failed to consume reset request", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPass), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.usrSaver.UpdatePassword(ctx, email, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset successful")

	return nil
}

// Referrals returns the users referred by the given identity, read from the
// referral ledger.
func (s *Service) Referrals(ctx context.Context, email string) ([]models.ReferredUser, error) {
	const op = "referral.Referrals"

	log := s.log.With(slog.String("op", op))

	referrer, err := s.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	referred, err := s.refProvider.ReferralsByReferrer(ctx, referrer.ID)
	if err != nil {
		log.Error("failed to list referrals", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return referred, nil
}

// ReferralStats counts ledger entries for the given identity.
func (s *Service) ReferralStats(ctx context.Context, email string) (models.ReferralStats, error) {
	const op = "referral.ReferralStats"

	log := s.log.With(slog.String("op", op))

	referrer, err := s.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.ReferralStats{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))

		return models.ReferralStats{}, fmt.Errorf("%s: %w", op, err)
	}

	stats, err := s.refProvider.ReferralStats(ctx, referrer.ID)
	if err != nil {
		log.Error("failed to count referrals", sl.Err(err))

		return models.ReferralStats{}, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

func (s *Service) generateUniqueCode(ctx context.Context, email string) (string, error) {
	const op = "referral.generateUniqueCode"

	for i := 0; i < codeAttempts; i++ {
		code, err := referralcode.New(email)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		_, err = s.usrProvider.UserByReferralCode(ctx, code)
		if errors.Is(err, storage.ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	return "", fmt.Errorf("%s: could not generate a unique code", op)
}
