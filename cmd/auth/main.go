package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"auth/internal/config"
	"auth/internal/observability/logging"
	"auth/internal/observability/metrics"
	"auth/internal/observability/middleware"
	impl "auth/internal/service/impl"
	"auth/internal/store"
	httpx "auth/internal/transport/http"
	"auth/pkg/db"
)

func main() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "auth",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	logger.Info("starting service")

	cfg := config.Load()
	metrics.MustRegister("auth")

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)

	otpCfg := impl.OTPConfig{
		TTL:             cfg.OTPTTL,
		MaxAttempts:     cfg.MaxOTPAttempts,
		LockoutDuration: cfg.LockoutDuration,
	}

	audit := impl.NewAuditRecorder(st)
	pw := impl.NewPasswordServiceArgon2id()
	tokens := impl.NewResetTokenServiceHS256(impl.ResetTokenConfig{
		SigningKey: []byte(cfg.ResetTokenSecret),
		TTL:        cfg.ResetTokenTTL,
	})
	notifier := &impl.ChannelNotifier{
		Email: impl.NewSMTPNotifier(impl.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		}),
		SMS: impl.NewSMSLogNotifier(),
	}

	auth := impl.NewAuthServiceImpl(st, pw, audit, otpCfg)
	otpLogin := impl.NewOTPLoginServiceImpl(st, notifier, audit, otpCfg)
	reset := impl.NewPasswordResetServiceImpl(st, pw, tokens, notifier, audit, otpCfg)

	mux := httpx.NewRouter(auth, otpLogin, reset, httpx.Options{
		CORSOrigins: strings.Split(cfg.CORSOrigins, ","),
		TrustProxy:  cfg.TrustProxy,
	})
	handler := middleware.WithRequestAndTrace(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("auth service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
