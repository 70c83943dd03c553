package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"referral_service/internal/config"
	forgotPassword "referral_service/internal/http_server/handlers/forgot_password"
	"referral_service/internal/http_server/handlers/login"
	"referral_service/internal/http_server/handlers/logout"
	referralStats "referral_service/internal/http_server/handlers/referral_stats"
	"referral_service/internal/http_server/handlers/referrals"
	register "referral_service/internal/http_server/handlers/register"
	resetPassword "referral_service/internal/http_server/handlers/reset_password"
	"referral_service/internal/http_server/middleware/authn"
	rateLimit "referral_service/internal/middleware/ratelimit"
	"referral_service/internal/rabbitmq"
	"referral_service/internal/referral"
	"referral_service/internal/storage/postgres"
	redisStorage "referral_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting referral service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	resetStore, err := redisStorage.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer resetStore.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	service := referral.New(
		log,
		storage,
		storage,
		storage,
		storage,
		resetStore,
		cfg.Tokens.SessionTokenTTL,
		cfg.Tokens.ResetTokenTTL,
		cfg.Tokens.SessionTokenSecret,
	)

	router := setupRouter(log, service, msgBroker, cfg)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	service *referral.Service,
	msgBroker *rabbitmq.RabbitMQClient,
	cfg *config.Config,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"message": "Referral API is running!"})
	})

	r.With(rateLimit.Register()).Post("/register",
		register.New(log, validate, service),
	)
	r.With(rateLimit.Login()).Post("/login",
		login.New(log, validate, service, cfg.Tokens.SessionTokenTTL),
	)
	r.Post("/logout",
		logout.New(log),
	)
	r.With(rateLimit.ForgotPassword()).Post("/forgot-password",
		forgotPassword.New(log, validate, service, msgBroker, cfg.HTTPServer.BaseURL),
	)
	r.With(rateLimit.ResetPassword()).Post("/reset-password",
		resetPassword.New(log, validate, service),
	)

	r.Get("/referrals/{email}",
		referrals.ByEmail(log, service),
	)
	r.Get("/referral-stats/{email}",
		referralStats.ByEmail(log, service),
	)

	r.Group(func(pr chi.Router) {
		pr.Use(authn.New(log, cfg.Tokens.SessionTokenSecret))

		pr.Get("/referrals",
			referrals.BySession(log, service),
		)
		pr.Get("/referral-stats",
			referralStats.BySession(log, service),
		)
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
