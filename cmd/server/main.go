package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"bookify/internal/app"
	"bookify/internal/config"
	"bookify/internal/notify"
	"bookify/internal/ratelimit"
	"bookify/internal/server"
	"bookify/internal/util"
	"bookify/pkg/mail"
	"bookify/pkg/queue"
	"bookify/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "bookify:ratelimit",
		cfg.RateLimitPerMinute, time.Minute,
	)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.SMTPFrom,
		AdminEmail: cfg.AdminEmail,
	})
	if err != nil {
		log.Fatalf("failed to init mailer: %v", err)
	}
	mailQueue, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Stream:   "bookify:notifications",
		Group:    "mailers",
	})
	if err != nil {
		log.Fatalf("failed to init mail queue: %v", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}
	dispatcher := notify.NewDispatcher(mailQueue, mailer, dataStore)
	dispatcher.Start(context.Background(), 2)

	appCore, err := app.New(app.Config{
		JWTSecret:          cfg.JWTSecret,
		MinioEndpoint:      cfg.MinioEndpoint,
		MinioAccessKey:     cfg.MinioAccessKey,
		MinioSecretKey:     cfg.MinioSecretKey,
		MinioBucket:        cfg.MinioBucket,
		MinioUseSSL:        cfg.MinioUseSSL,
		MinioPublicBaseURL: cfg.MinioPublicBaseURL,
		Store:              dataStore,
		Notifier:           dispatcher,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		Limiter:        limiter,
		TrustedProxies: trustedProxies,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("bookify server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
