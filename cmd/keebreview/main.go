package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/keebreview/keebreview/pkg/api"
	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/comments"
	"github.com/keebreview/keebreview/pkg/config"
	"github.com/keebreview/keebreview/pkg/middleware"
	"github.com/keebreview/keebreview/pkg/observability"
	"github.com/keebreview/keebreview/pkg/reviews"
	"github.com/keebreview/keebreview/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("failed to run migrations")
		os.Exit(1)
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	// Profile store, optionally fronted by Redis.
	var profiles auth.ProfileStore = postgres.NewProfileStore(db)
	if cfg.Storage.RedisURL != "" {
		redisClient, err := postgres.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			logger.WithError(err).Error("failed to connect to redis")
			os.Exit(1)
		}
		defer redisClient.Close()
		profiles = postgres.NewCachedProfileStore(profiles, redisClient,
			cfg.Storage.ProfileCacheTTL, logger, metrics)
		logger.Info("profile cache enabled")
	}

	provider := auth.NewProviderClient(cfg.Auth.ProviderURL, cfg.Auth.ProviderAnonKey)

	var verifier auth.Verifier
	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		verifier, err = auth.NewLocalVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			logger.WithError(err).Error("failed to configure local token verification")
			os.Exit(1)
		}
		logger.Info("auth mode: local token verification")
	default:
		verifier = auth.NewRemoteVerifier(provider)
		logger.Info("auth mode: remote introspection")
	}

	// Media blob storage is optional; without a bucket, media upload is
	// disabled and everything else runs.
	var blobs reviews.BlobStore
	if cfg.Storage.S3Bucket != "" {
		blobStore, err := postgres.NewBlobStore(ctx, cfg.Storage)
		if err != nil {
			logger.WithError(err).Error("failed to configure blob storage")
			os.Exit(1)
		}
		blobs = blobStore
		logger.WithField("bucket", cfg.Storage.S3Bucket).Info("media storage enabled")
	} else {
		logger.Warn("no media bucket configured; media upload disabled")
	}

	reviewStore := postgres.NewReviewStore(db)
	mediaStore := postgres.NewMediaStore(db)
	commentStore := postgres.NewCommentStore(db)

	authService := auth.NewService(provider, verifier, profiles, logger)
	reviewService := reviews.NewService(reviewStore, mediaStore, blobs, logger)
	commentService := comments.NewService(commentStore, reviewStore, logger)

	guard := middleware.NewAuthMiddleware(verifier, profiles, logger, metrics)

	server := api.NewServer(db, logger, metrics,
		api.NewAuthHandlers(authService, guard, logger),
		api.NewReviewHandlers(reviewService, guard, logger),
		api.NewCommentHandlers(commentService, guard, logger),
	)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("server failed")
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info("server stopped")
}
